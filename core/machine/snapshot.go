package machine

import "github.com/w1ne/labwired/internal/errors"

// Snapshot/restore determinism: restoring a snapshot and resuming execution
// must produce byte-identical results to never having paused at all.
// Grounded on the debugger/rewind.go state-restore approach,
// which moves the whole VCS state by value rather than through a
// serialization format — MachineState does the same: every field is a
// concrete in-memory copy, not an encoded byte stream, so Restore is exact
// and round-trips without any encoding loss.
type MachineState struct {
	arch Architecture

	cpuState interface{}

	ram   []byte
	flash []byte

	peripheralStates []interface{}
	nvicState        interface{}

	steps  uint64
	cycles uint64
}

// Snapshot captures the entire architectural state of the Machine: CPU
// registers, RAM and flash contents, every peripheral's internal state,
// the shared NVIC (if any), and the step/cycle counters. The ARM decode
// cache is never part of this — it is a pure performance optimization, and
// a restored Machine must behave exactly as if it had been cold-decoding
// all along.
func (m *Machine) Snapshot() *MachineState {
	s := &MachineState{
		arch:   m.Arch,
		steps:  m.steps,
		cycles: m.cycles,
	}
	switch m.Arch {
	case ArchARM:
		s.cpuState = m.arm.Snapshot()
	case ArchRISCV:
		s.cpuState = m.riscv.Snapshot()
	}
	if m.Bus.RAM != nil {
		s.ram = m.Bus.RAM.Snapshot()
	}
	if m.Bus.Flash != nil {
		s.flash = m.Bus.Flash.Snapshot()
	}
	s.peripheralStates = make([]interface{}, len(m.Bus.Peripherals))
	for i := range m.Bus.Peripherals {
		s.peripheralStates[i] = m.Bus.Peripherals[i].Dev.Snapshot()
	}
	if m.NVIC != nil {
		s.nvicState = m.NVIC.Snapshot()
	}
	return s
}

// Restore replaces the Machine's entire state with a previously captured
// MachineState. It is an error to restore a snapshot taken from a Machine
// of a different architecture or with a different peripheral set.
func (m *Machine) Restore(s *MachineState) error {
	if s.arch != m.Arch {
		return errors.Errorf(errors.ConfigError, "snapshot architecture does not match this machine")
	}
	if len(s.peripheralStates) != len(m.Bus.Peripherals) {
		return errors.Errorf(errors.ConfigError, "snapshot peripheral count does not match this machine")
	}

	var err error
	switch m.Arch {
	case ArchARM:
		err = m.arm.Restore(s.cpuState)
	case ArchRISCV:
		err = m.riscv.Restore(s.cpuState)
	}
	if err != nil {
		return err
	}

	if m.Bus.RAM != nil && s.ram != nil {
		if !m.Bus.RAM.Restore(s.ram) {
			return errors.Errorf(errors.ConfigError, "snapshot RAM size does not match this machine")
		}
	}
	if m.Bus.Flash != nil && s.flash != nil {
		if !m.Bus.Flash.Restore(s.flash) {
			return errors.Errorf(errors.ConfigError, "snapshot flash size does not match this machine")
		}
	}
	for i := range m.Bus.Peripherals {
		if err := m.Bus.Peripherals[i].Dev.Restore(s.peripheralStates[i]); err != nil {
			return err
		}
	}
	if m.NVIC != nil && s.nvicState != nil {
		if err := m.NVIC.Restore(s.nvicState); err != nil {
			return err
		}
	}

	m.steps = s.steps
	m.cycles = s.cycles
	m.haveLastBkpt = false
	return nil
}
