// Package machine implements the orchestrator: the thing that owns a
// system bus, a CPU (either architecture), and the observer broadcast, and
// drives them through reset/step/run.
//
// Grounded on original_source/crates/core/src/lib.rs's top-level
// `Simulator` (load_firmware/reset/step/run) and the VCS struct used for
// the 6507: one struct gluing together CPU + bus + peripherals behind a
// small set of orchestration methods, with debugger hooks layered on top
// (mirrored here by debugfacade.go).
package machine

import (
	"github.com/w1ne/labwired/core/cpu/arm"
	"github.com/w1ne/labwired/core/cpu/riscv"
	"github.com/w1ne/labwired/core/instance"
	"github.com/w1ne/labwired/core/observer"
	"github.com/w1ne/labwired/core/peripherals"
	"github.com/w1ne/labwired/core/systembus"
	"github.com/w1ne/labwired/internal/errors"
)

// Architecture selects which CPU interpreter a Machine runs.
type Architecture int

const (
	ArchARM Architecture = iota
	ArchRISCV
)

// StopReason enumerates why Run returned, mirroring the priority-ordered
// stop conditions the harness package checks.
type StopReason int

const (
	StopNone StopReason = iota
	StopBreakpoint
	StopMemoryViolation
	StopDecodeError
	StopMaxSteps
	StopMaxCycles
)

// Machine is the complete simulated system: a bus, one CPU, and the
// observers watching it run.
type Machine struct {
	Arch Architecture
	Bus  *systembus.SystemBus
	NVIC *peripherals.NVIC

	arm   *arm.CPU
	riscv *riscv.CPU

	obs *observer.Broadcaster

	instance *instance.Instance

	breakpoints      map[uint32]bool
	lastBreakpointPC uint32
	haveLastBkpt     bool

	steps  uint64
	cycles uint64

	Metrics *Metrics
}

// New creates a Machine for the given architecture, sharing inst's
// preferences/random source and bus/NVIC with the CPU it constructs.
// When nvic is non-nil and arch is ArchARM, the CPU's VTOR cell is shared
// with the NVIC's so both sides of an exception-entry vector fetch read
// the same relocated table base.
func New(arch Architecture, bus *systembus.SystemBus, nvic *peripherals.NVIC, inst *instance.Instance) *Machine {
	if inst == nil {
		inst = instance.New(0)
	}
	m := &Machine{
		Arch:        arch,
		Bus:         bus,
		NVIC:        nvic,
		instance:    inst,
		obs:         observer.NewBroadcaster(),
		breakpoints: make(map[uint32]bool),
		Metrics:     NewMetrics(),
	}
	if nvic != nil && bus != nil && bus.NVIC == nil {
		bus.NVIC = nvic
	}
	switch arch {
	case ArchARM:
		var vtor *uint32
		if nvic != nil {
			vtor = nvic.VTORPointer()
		}
		m.arm = arm.New(vtor, inst.Prefs)
	case ArchRISCV:
		m.riscv = riscv.New()
	}
	return m
}

// AddObserver attaches another observer to the broadcast.
func (m *Machine) AddObserver(o observer.Observer) {
	m.obs.Add(o)
}

// Reset performs the architecture-specific reset sequence: SP/PC load from
// the vector table for ARM, PC <- 0 for RISC-V.
func (m *Machine) Reset() error {
	m.steps, m.cycles = 0, 0
	m.haveLastBkpt = false
	switch m.Arch {
	case ArchARM:
		return m.arm.Reset(m.Bus)
	case ArchRISCV:
		m.riscv.Reset()
	}
	return nil
}

// currentPC returns the active CPU's program counter, regardless of
// architecture.
func (m *Machine) currentPC() uint32 {
	if m.Arch == ArchARM {
		return m.arm.PC
	}
	return m.riscv.PC
}

// Step executes exactly one instruction (or, for ARM, one exception entry
// in place of an instruction), ticks every peripheral once, routes any
// IRQs the tick produced to the CPU, and returns any error the CPU or bus
// raised. This is the unit both single-stepping and Run build on.
func (m *Machine) Step() error {
	pc := m.currentPC()
	if m.breakpoints[pc] {
		m.lastBreakpointPC = pc
		m.haveLastBkpt = true
		return errors.Errorf(errors.Halt, pc)
	}

	var err error
	switch m.Arch {
	case ArchARM:
		err = m.arm.Step(m.Bus, m.obs)
	case ArchRISCV:
		err = m.riscv.Step(m.Bus, m.obs)
	}
	if err != nil {
		return err
	}
	m.steps++
	m.cycles++
	m.Metrics.recordStep(1)

	irqs, err := m.Bus.TickPeripherals()
	if err != nil {
		return err
	}
	for _, irq := range irqs {
		m.obs.OnPeripheralTick("irq", 1)
		m.Metrics.recordPeripheralTick()
		if m.Arch == ArchARM {
			m.arm.SignalException(irq)
		}
		// RISC-V interrupts route through mip/mie CSRs directly, set by
		// the peripheral that owns the corresponding external line (e.g.
		// a CLINT-style timer peripheral, not modeled as a bus.Peripheral
		// here); core exceptions below 16 on the ARM side have no RISC-V
		// analogue and are simply not raised for that architecture.
	}
	return nil
}

// Run executes instructions until a stop condition applies, honoring the
// "a breakpoint already hit on entry does not re-trigger Run" sticky rule:
// if PC is sitting on the last breakpoint Step() itself reported, Run
// steps past it once before re-arming breakpoint checks.
func (m *Machine) Run(maxSteps, maxCycles uint64) (StopReason, error) {
	m.obs.OnSimulationStart()
	defer m.obs.OnSimulationStop()

	for {
		pc := m.currentPC()
		skipBreakpointThisIteration := m.haveLastBkpt && pc == m.lastBreakpointPC
		if skipBreakpointThisIteration {
			m.haveLastBkpt = false
		}

		if !skipBreakpointThisIteration && m.breakpoints[pc] {
			m.lastBreakpointPC = pc
			m.haveLastBkpt = true
			return StopBreakpoint, nil
		}

		var err error
		switch m.Arch {
		case ArchARM:
			err = m.arm.Step(m.Bus, m.obs)
		case ArchRISCV:
			err = m.riscv.Step(m.Bus, m.obs)
		}
		if err != nil {
			switch {
			case errors.Has(err, errors.MemoryViolation):
				return StopMemoryViolation, err
			case errors.Has(err, errors.DecodeError):
				return StopDecodeError, err
			default:
				return StopNone, err
			}
		}
		m.steps++
		m.cycles++
		m.Metrics.recordStep(1)

		irqs, err := m.Bus.TickPeripherals()
		if err != nil {
			return StopNone, err
		}
		for _, irq := range irqs {
			m.obs.OnPeripheralTick("irq", 1)
			m.Metrics.recordPeripheralTick()
			if m.Arch == ArchARM {
				m.arm.SignalException(irq)
			}
		}

		if maxSteps > 0 && m.steps >= maxSteps {
			return StopMaxSteps, nil
		}
		if maxCycles > 0 && m.cycles >= maxCycles {
			return StopMaxCycles, nil
		}
	}
}

// Steps returns the number of instructions executed since the last Reset.
func (m *Machine) Steps() uint64 { return m.steps }

// Cycles returns the number of cycles attributed since the last Reset.
// This Machine counts one cycle per instruction; a cycle-accurate variant
// would instead sum the per-instruction costs Step's CPU.execute produces,
// which only matters for hardware timing fidelity, not for deterministic
// reproduction of a run.
func (m *Machine) Cycles() uint64 { return m.cycles }
