// Package peripherals implements the built-in peripheral models: UART,
// GPIO, NVIC, SysTick, Timer, I2C, SPI, DMA, ADC, EXTI, AFIO and RCC. Each
// is grounded on the matching module under
// original_source/crates/core/src/peripherals/, simplified to the register
// subset and timing behavior this simulator actually exercises, and
// implemented as a bus.Peripheral in a hand-rolled-state-machine style
// (compare hardware/riot, hardware/tia: one small struct per chip,
// explicit register fields, no reflection).
package peripherals

import "github.com/w1ne/labwired/core/bus"

// UartLayout selects which register map a Uart exposes. Real USART IP
// blocks have shipped both arrangements across vendor generations; a board
// descriptor picks whichever its chip uses.
type UartLayout int

const (
	// UartLayoutLegacy puts the data register first (DR@0x00, SR@0x04), the
	// arrangement used by this simulator's original minimal UART model.
	UartLayoutLegacy UartLayout = iota
	// UartLayoutModern matches the STM32 USART ordering: status register
	// first (SR@0x00), data register second (DR@0x04).
	UartLayoutModern
)

const (
	uartSRTXEmpty = 1 << 7 // TXE: transmit data register empty
	uartSRRXNotEmpty = 1 << 5 // RXNE: receive data register not empty
)

// Uart models a single USART/UART: writing the data register captures the
// byte into an optional shared sink; the status register always reports
// transmit-ready. With echo enabled, a DR write also loops the byte back
// onto the receive side (RXNE set, same byte readable back from DR) —
// useful for exercising guest code that waits on its own transmitted byte
// without a real wired-up peer on the other end of the line.
type Uart struct {
	bus.NoTick

	layout   UartLayout
	drOffset uint32
	srOffset uint32
	echo     bool

	dr uint32
	sr uint32

	sink *bus.Sink
}

// NewUart creates a UART with TXE set (ready to transmit), using the given
// register layout. If echo is true, writing DR also sets RXNE and leaves
// the written byte available to a subsequent DR read, simulating a
// loopback line.
func NewUart(layout UartLayout, echo bool) *Uart {
	u := &Uart{layout: layout, sr: uartSRTXEmpty, echo: echo}
	switch layout {
	case UartLayoutModern:
		u.srOffset, u.drOffset = 0x00, 0x04
	default:
		u.drOffset, u.srOffset = 0x00, 0x04
	}
	return u
}

// SetSink installs (or removes, with nil) the capture sink that mirrors
// every byte written to the data register. This is the privileged
// operation the system bus performs via the Downcastable interface.
func (u *Uart) SetSink(sink *bus.Sink) {
	u.sink = sink
}

// As implements bus.Downcastable so the system bus can reach SetSink.
func (u *Uart) As(target interface{}) bool {
	if p, ok := target.(**Uart); ok {
		*p = u
		return true
	}
	return false
}

func (u *Uart) Read(offset uint32) (uint8, bool) {
	switch offset {
	case u.drOffset:
		if u.echo {
			u.sr &^= uartSRRXNotEmpty
		}
		return byte(u.dr), true
	case u.srOffset:
		return byte(u.sr), true
	default:
		return 0, false
	}
}

func (u *Uart) Write(offset uint32, value uint8) bool {
	switch offset {
	case u.drOffset:
		u.dr = uint32(value)
		if u.sink != nil {
			u.sink.Capture(value)
		}
		if u.echo {
			u.sr |= uartSRRXNotEmpty
		}
		return true
	case u.srOffset:
		u.sr = uint32(value)
		return true
	default:
		return false
	}
}

type uartState struct {
	Layout         UartLayout
	DROffset, SROffset uint32
	Echo           bool
	DR, SR         uint32
}

func (u *Uart) Snapshot() interface{} {
	return uartState{
		Layout: u.layout, DROffset: u.drOffset, SROffset: u.srOffset, Echo: u.echo,
		DR: u.dr, SR: u.sr,
	}
}

func (u *Uart) Restore(state interface{}) error {
	s, ok := state.(uartState)
	if !ok {
		return errForeignState
	}
	u.layout, u.drOffset, u.srOffset, u.echo = s.Layout, s.DROffset, s.SROffset, s.Echo
	u.dr, u.sr = s.DR, s.SR
	return nil
}
