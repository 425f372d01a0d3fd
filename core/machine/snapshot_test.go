package machine

import (
	"testing"

	"github.com/w1ne/labwired/core/memory"
	"github.com/w1ne/labwired/core/peripherals"
	"github.com/w1ne/labwired/core/systembus"
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	bus := systembus.New()
	bus.Flash = memory.NewRegion(0x0, 0x1000)
	bus.RAM = memory.NewRegion(0x2000_0000, 0x1000)

	// MOVS r0,#5 at 0x0, then a string of ADDS r0,r0,#1 after it so
	// stepping twice from the same starting state is observable.
	bus.Flash.WriteByte(0x0, 0x05)
	bus.Flash.WriteByte(0x1, 0x20)
	bus.Flash.WriteByte(0x2, 0x01) // ADDS r0, r0, #1 = 0x3001
	bus.Flash.WriteByte(0x3, 0x30)
	bus.Flash.WriteByte(0x4, 0x01)
	bus.Flash.WriteByte(0x5, 0x30)

	nvic := peripherals.NewNVIC(0)
	m := New(ArchARM, bus, nvic, nil)
	m.arm.PC = 0
	m.arm.SP = 0x2000_1000
	return m
}

func TestSnapshotRestoreProducesIdenticalContinuation(t *testing.T) {
	m := newTestMachine(t)

	if err := m.Step(); err != nil {
		t.Fatalf("first step: %v", err)
	}

	snap := m.Snapshot()

	if err := m.Step(); err != nil {
		t.Fatalf("second step on live machine: %v", err)
	}
	liveR0, liveSteps := m.arm.R[0], m.steps

	if err := m.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := m.Step(); err != nil {
		t.Fatalf("second step on restored machine: %v", err)
	}

	if m.arm.R[0] != liveR0 {
		t.Fatalf("r0 diverged after restore: live=%d restored=%d", liveR0, m.arm.R[0])
	}
	if m.steps != liveSteps {
		t.Fatalf("step count diverged after restore: live=%d restored=%d", liveSteps, m.steps)
	}
}

func TestRestoreRejectsMismatchedArchitecture(t *testing.T) {
	armMachine := newTestMachine(t)
	snap := armMachine.Snapshot()

	bus := systembus.New()
	riscvMachine := New(ArchRISCV, bus, nil, nil)

	if err := riscvMachine.Restore(snap); err == nil {
		t.Fatal("expected an error restoring an ARM snapshot into a RISC-V machine")
	}
}
