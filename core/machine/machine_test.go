package machine

import (
	"testing"

	"github.com/w1ne/labwired/core/memory"
	"github.com/w1ne/labwired/core/peripherals"
	"github.com/w1ne/labwired/core/systembus"
	"github.com/w1ne/labwired/internal/errors"
)

// nopLoopBus fills flash with an unbroken string of MOVS r0,#5 (0x2005)
// used by the Run tests below; it never reaches an undecodable word or a
// memory fault on its own.
func nopLoopBus(t *testing.T, size uint32) *systembus.SystemBus {
	t.Helper()
	b := systembus.New()
	b.Flash = memory.NewRegion(0x0, size)
	b.RAM = memory.NewRegion(0x2000_0000, 0x1000)
	for addr := uint32(0); addr+1 < size; addr += 2 {
		b.Flash.WriteByte(addr, 0x05)
		b.Flash.WriteByte(addr+1, 0x20)
	}
	return b
}

func TestRunStopsAtMaxSteps(t *testing.T) {
	b := nopLoopBus(t, 0x100)
	m := New(ArchARM, b, peripherals.NewNVIC(0), nil)

	reason, err := m.Run(10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != StopMaxSteps {
		t.Fatalf("expected StopMaxSteps, got %v", reason)
	}
	if m.Steps() != 10 {
		t.Fatalf("expected 10 steps executed, got %d", m.Steps())
	}
}

func TestRunStopsAtBreakpointThenSkipsItOnNextRun(t *testing.T) {
	b := nopLoopBus(t, 0x100)
	m := New(ArchARM, b, peripherals.NewNVIC(0), nil)
	m.AddBreakpoint(0x4)

	reason, err := m.Run(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != StopBreakpoint {
		t.Fatalf("expected StopBreakpoint, got %v", reason)
	}
	if m.arm.PC != 0x4 {
		t.Fatalf("expected PC to be sitting on the breakpoint, got %#x", m.arm.PC)
	}

	// Running again must not immediately re-report the same breakpoint;
	// it should execute past it and run until the step limit instead.
	reason, err = m.Run(2, 0)
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if reason != StopMaxSteps {
		t.Fatalf("expected the sticky breakpoint to be skipped, got %v", reason)
	}
}

func TestStepReportsHaltOnArmedBreakpoint(t *testing.T) {
	b := nopLoopBus(t, 0x10)
	m := New(ArchARM, b, peripherals.NewNVIC(0), nil)
	m.AddBreakpoint(0x0)

	err := m.Step()
	if !errors.Has(err, errors.Halt) {
		t.Fatalf("expected a Halt error from Step on an armed breakpoint, got %v", err)
	}
}

func TestRunClassifiesDecodeErrorOnRiscV(t *testing.T) {
	b := systembus.New()
	b.Flash = memory.NewRegion(0x0, 0x10)
	b.RAM = memory.NewRegion(0x2000_0000, 0x100)
	// 0xFFFFFFFF is not a valid RV32I opcode, so the first step must
	// fail to decode.
	b.Flash.WriteByte(0x0, 0xFF)
	b.Flash.WriteByte(0x1, 0xFF)
	b.Flash.WriteByte(0x2, 0xFF)
	b.Flash.WriteByte(0x3, 0xFF)
	m := New(ArchRISCV, b, nil, nil)

	reason, err := m.Run(0, 0)
	if reason != StopDecodeError {
		t.Fatalf("expected StopDecodeError, got %v (err=%v)", reason, err)
	}
}

func TestResetClearsStepCounters(t *testing.T) {
	b := nopLoopBus(t, 0x10)
	m := New(ArchARM, b, peripherals.NewNVIC(0), nil)

	if err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.Steps() == 0 {
		t.Fatal("expected at least one step recorded")
	}

	if err := m.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if m.Steps() != 0 || m.Cycles() != 0 {
		t.Fatalf("expected counters cleared after reset, got steps=%d cycles=%d", m.Steps(), m.Cycles())
	}
}
