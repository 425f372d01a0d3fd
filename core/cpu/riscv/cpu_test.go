package riscv_test

import (
	"testing"

	"github.com/w1ne/labwired/core/cpu/riscv"
	"github.com/w1ne/labwired/core/memory"
	"github.com/w1ne/labwired/internal/test"
)

// fakeBus is a minimal riscv.Bus backed by a single flat RAM region,
// enough to drive the interpreter without pulling in core/systembus.
type fakeBus struct {
	ram *memory.Region
}

func newFakeBus(size uint32) *fakeBus {
	return &fakeBus{ram: memory.NewRegion(0, size)}
}

func (b *fakeBus) ReadByte(addr uint32) (uint8, error) {
	v, _ := b.ram.ReadByte(addr)
	return v, nil
}

func (b *fakeBus) WriteByte(addr uint32, v uint8) error {
	b.ram.WriteByte(addr, v)
	return nil
}

func (b *fakeBus) ReadHalfWord(addr uint32) (uint16, error) {
	b0, _ := b.ram.ReadByte(addr)
	b1, _ := b.ram.ReadByte(addr + 1)
	return uint16(b0) | uint16(b1)<<8, nil
}

func (b *fakeBus) WriteHalfWord(addr uint32, v uint16) error {
	b.ram.WriteByte(addr, byte(v))
	b.ram.WriteByte(addr+1, byte(v>>8))
	return nil
}

func (b *fakeBus) ReadWord(addr uint32) (uint32, error) {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		byteVal, _ := b.ram.ReadByte(addr + i)
		v |= uint32(byteVal) << (8 * i)
	}
	return v, nil
}

func (b *fakeBus) WriteWord(addr uint32, v uint32) error {
	for i := uint32(0); i < 4; i++ {
		b.ram.WriteByte(addr+i, byte(v>>(8*i)))
	}
	return nil
}

func TestADDI(t *testing.T) {
	bus := newFakeBus(64)
	bus.WriteWord(0, 0x00500093) // ADDI x1, x0, 5
	c := riscv.New()

	err := c.Step(bus, nil)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, c.X[1], uint32(5))
	test.ExpectEquality(t, c.PC, uint32(4))
}

func TestBEQTakenScenario(t *testing.T) {
	bus := newFakeBus(64)
	program := []uint32{
		0x00a00093, // ADDI x1, x0, 10
		0x00a00113, // ADDI x2, x0, 10
		0x00208463, // BEQ x1, x2, +8
		0x00100193, // ADDI x3, x0, 1
		0x00100213, // ADDI x4, x0, 1
	}
	for i, w := range program {
		bus.WriteWord(uint32(i*4), w)
	}
	c := riscv.New()

	for i := 0; i < 4; i++ {
		err := c.Step(bus, nil)
		test.ExpectSuccess(t, err)
	}

	test.ExpectEquality(t, c.X[1], uint32(10))
	test.ExpectEquality(t, c.X[2], uint32(10))
	test.ExpectEquality(t, c.X[3], uint32(0))
	test.ExpectEquality(t, c.X[4], uint32(1))
	test.ExpectEquality(t, c.PC, uint32(20))
}

func TestX0WritesIgnored(t *testing.T) {
	bus := newFakeBus(64)
	bus.WriteWord(0, 0x00500013) // ADDI x0, x0, 5
	c := riscv.New()
	c.Step(bus, nil)
	test.ExpectEquality(t, c.X[0], uint32(0))
}

func TestMisalignedFetchIsMemoryViolation(t *testing.T) {
	bus := newFakeBus(64)
	c := riscv.New()
	c.PC = 2
	err := c.Step(bus, nil)
	test.ExpectFailure(t, err)
}

func TestUnknownOpcodeIsDecodeError(t *testing.T) {
	bus := newFakeBus(64)
	bus.WriteWord(0, 0xFFFFFFFF)
	c := riscv.New()
	err := c.Step(bus, nil)
	test.ExpectFailure(t, err)
}

func TestTimerInterruptTrapsWhenEnabled(t *testing.T) {
	bus := newFakeBus(64)
	// A long run of NOPs (ADDI x0,x0,0) so the trap has somewhere to land
	// and somewhere to trap from.
	for i := 0; i < 16; i++ {
		bus.WriteWord(uint32(i*4), 0x00000013)
	}
	c := riscv.New()
	c.SetMtimecmp(1)

	// Order matters: set mtvec first, then mie, and enable mstatus.MIE
	// last, since the trap can fire as early as the same step that makes
	// the pending condition true.

	// CSRRWI x0, mtvec, 0x10
	word1 := (uint32(0x305) << 20) | (uint32(0x10) << 15) | (uint32(5) << 12) | (uint32(0) << 7) | 0x73
	bus.WriteWord(0, word1)
	err := c.Step(bus, nil)
	test.ExpectSuccess(t, err)

	// CSRRW x0, mie, x1 with x1 = 0x80 (MTIE, bit 7); CSRRWI's 5-bit
	// immediate cannot reach bit 7.
	c.X[1] = 0x80
	word2 := (uint32(0x304) << 20) | (uint32(1) << 15) | (uint32(1) << 12) | (uint32(0) << 7) | 0x73
	bus.WriteWord(4, word2)
	err = c.Step(bus, nil)
	test.ExpectSuccess(t, err)

	// CSRRWI x0, mstatus, 0x8 (MIE, bit 3): mtime is already >= mtimecmp
	// and MTIE is already set, so the trap fires at the end of this very
	// step, jumping PC to mtvec (0x10) instead of falling through to 0xC.
	word3 := (uint32(0x300) << 20) | (uint32(0x08) << 15) | (uint32(5) << 12) | (uint32(0) << 7) | 0x73
	bus.WriteWord(8, word3)
	err = c.Step(bus, nil)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, c.PC, uint32(0x10))
}
