package peripherals_test

import (
	"testing"

	"github.com/w1ne/labwired/core/bus"
	"github.com/w1ne/labwired/core/peripherals"
	"github.com/w1ne/labwired/internal/test"
)

func TestUartCapturesToSink(t *testing.T) {
	u := peripherals.NewUart(peripherals.UartLayoutLegacy, false)
	sink := bus.NewSink(false)
	u.SetSink(sink)

	u.Write(0x00, 0x41)
	u.Write(0x00, 0x42)

	test.ExpectEquality(t, string(sink.Bytes()), "AB")
}

func TestUartModernLayoutSwapsRegisterOrder(t *testing.T) {
	u := peripherals.NewUart(peripherals.UartLayoutModern, false)

	u.Write(0x04, 0x5A) // DR is now at 0x04
	v, ok := u.Read(0x04)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, v, uint8(0x5A))

	sr, ok := u.Read(0x00) // SR is now at 0x00
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, sr&0x80, uint8(0x80)) // TXE still set
}

func TestUartEchoLoopsWrittenByteBackToRead(t *testing.T) {
	u := peripherals.NewUart(peripherals.UartLayoutLegacy, true)

	u.Write(0x00, 0x37)
	sr, _ := u.Read(0x04)
	test.ExpectEquality(t, sr&0x20, uint8(0x20)) // RXNE set after echo

	v, _ := u.Read(0x00)
	test.ExpectEquality(t, v, uint8(0x37))

	sr, _ = u.Read(0x04)
	test.ExpectEquality(t, sr&0x20, uint8(0x00)) // RXNE cleared by the read
}

func TestUartDowncast(t *testing.T) {
	u := peripherals.NewUart(peripherals.UartLayoutLegacy, false)
	var target *peripherals.Uart
	ok := u.As(&target)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, target, u)
}

func TestGpioBsrrCommitSetsPin(t *testing.T) {
	g := peripherals.NewGpioPort(peripherals.ProfileSTM32F1)

	// Four byte writes 01 00 00 00 to BSRR (offset 0x10) then read ODR.
	g.Write(0x10, 0x01)
	g.Write(0x11, 0x00)
	g.Write(0x12, 0x00)
	g.Write(0x13, 0x00)

	test.ExpectEquality(t, g.Output(), uint16(0x0001))
}

func TestGpioBsrrCommitClearsPin(t *testing.T) {
	g := peripherals.NewGpioPort(peripherals.ProfileSTM32F1)
	g.Write(0x10, 0x01)
	g.Write(0x11, 0x00)
	g.Write(0x12, 0x00)
	g.Write(0x13, 0x00)
	test.ExpectEquality(t, g.Output(), uint16(0x0001))

	// Four byte writes 00 00 01 00 to BSRR: bit 16 of the word (pin 0's
	// reset bit) set, clearing pin 0.
	g.Write(0x10, 0x00)
	g.Write(0x11, 0x00)
	g.Write(0x12, 0x01)
	g.Write(0x13, 0x00)

	test.ExpectEquality(t, g.Output(), uint16(0x0000))
}

func TestGpioBsrrSetWinsOverClearSamePin(t *testing.T) {
	g := peripherals.NewGpioPort(peripherals.ProfileSTM32F1)

	// Byte 0 = set pin 0, byte 2 = reset pin 0: both asserted in the same
	// 32-bit commit.
	g.Write(0x10, 0x01)
	g.Write(0x11, 0x00)
	g.Write(0x12, 0x01)
	g.Write(0x13, 0x00)

	test.ExpectEquality(t, g.Output(), uint16(0x0001))
}

func TestGpioWriteToOtherRegisterResetsAccumulator(t *testing.T) {
	g := peripherals.NewGpioPort(peripherals.ProfileSTM32F1)

	g.Write(0x10, 0x01) // one lane of BSRR arrives
	g.Write(0x00, 0x00) // write CRL, unrelated register: resets accumulator
	g.Write(0x11, 0x00)
	g.Write(0x12, 0x00)
	g.Write(0x13, 0x00) // completes BSRR accumulator, but buf was reset to 0

	test.ExpectEquality(t, g.Output(), uint16(0x0000))
}

func TestSysTickReloadProducesRPlusOneTicks(t *testing.T) {
	s := peripherals.NewSysTick()
	// RVR = 1 (offset 0x04)
	s.Write(0x04, 0x01)
	s.Write(0x05, 0x00)
	s.Write(0x06, 0x00)
	s.Write(0x07, 0x00)
	// CSR = enable | tickint (offset 0x00)
	s.Write(0x00, 0x03)

	fireCount := 0
	for i := 0; i < 6; i++ {
		result := s.Tick()
		if len(result.ExplicitIRQs) > 0 {
			test.ExpectEquality(t, result.ExplicitIRQs[0], uint32(15))
			fireCount++
		}
	}

	// RVR=1 means 2 ticks per wrap; 6 ticks should produce 3 wraps.
	test.ExpectEquality(t, fireCount, 3)
}

func TestNvicSignalAndDispatch(t *testing.T) {
	n := peripherals.NewNVIC(0)

	n.SignalIRQ(28)
	test.ExpectEquality(t, len(n.DispatchableIRQs()), 0) // not enabled yet

	regs := peripherals.NewNVICRegisters(n, peripherals.WindowISER)
	// Enable IRQ 28: bit (28-16)=12 of word 0.
	regs.Write(1, 1<<4) // byte 1 covers bits 8-15; bit 12 is bit 4 of byte 1

	dispatchable := n.DispatchableIRQs()
	test.ExpectEquality(t, len(dispatchable), 1)
	test.ExpectEquality(t, dispatchable[0], uint32(28))

	n.Unpend(28)
	test.ExpectEquality(t, len(n.DispatchableIRQs()), 0)
}

func TestAdcConversionLatency(t *testing.T) {
	a := peripherals.NewAdc()
	a.Write(0x0C, 0x01) // IER: EOCIE
	a.Write(0x00, 0x03) // CR: ADON | SWSTART

	irqTick := -1
	for i := 0; i < 20; i++ {
		result := a.Tick()
		if len(result.ExplicitIRQs) > 0 {
			irqTick = i
			break
		}
	}

	test.ExpectEquality(t, irqTick, 13) // 14-tick latency, zero-indexed

	v, _ := a.Read(0x08)
	test.ExpectEquality(t, v, uint8(1))
}

func TestDmaMem2MemTransferCompletesAndDisarms(t *testing.T) {
	d := peripherals.NewDma()

	base := uint32(0x08) // channel 1
	d.Write(base+0x04, 0x02) // CNDTR low byte = 2
	d.Write(base+0x04+1, 0x00)
	d.Write(base+0x04+2, 0x00)
	d.Write(base+0x04+3, 0x00)

	// CCR: EN | MEM2MEM
	d.Write(base, 0x01)
	d.Write(base+1, 0x40) // bit 14 is bit 6 of byte 1

	r1 := d.Tick()
	test.ExpectEquality(t, len(r1.DMARequests), 1)

	r2 := d.Tick()
	test.ExpectEquality(t, len(r2.DMARequests), 1)

	// Channel disarmed: a third tick produces no request.
	r3 := d.Tick()
	test.ExpectEquality(t, len(r3.DMARequests), 0)
}
