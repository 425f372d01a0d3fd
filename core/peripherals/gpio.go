package peripherals

import "github.com/w1ne/labwired/core/bus"

// GpioProfile selects which STM32-style register layout a GpioPort uses.
type GpioProfile int

const (
	ProfileSTM32F1 GpioProfile = iota
	ProfileSTM32V2
)

type gpioLayout struct {
	crl, crh             uint32 // f1 only
	moder, otyper        uint32 // v2 only
	ospeedr, pupdr       uint32 // v2 only
	afrl, afrh           uint32 // v2 only
	idr, odr, lckr       uint32
	bsrrOffset, brrOffset uint32
}

func layoutFor(p GpioProfile) gpioLayout {
	switch p {
	case ProfileSTM32V2:
		return gpioLayout{
			moder: 0x00, otyper: 0x04, ospeedr: 0x08, pupdr: 0x0C,
			idr: 0x10, odr: 0x14, bsrrOffset: 0x18, lckr: 0x1C,
			afrl: 0x20, afrh: 0x24, brrOffset: 0x28,
		}
	default:
		return gpioLayout{
			crl: 0x00, crh: 0x04, idr: 0x08, odr: 0x0C,
			bsrrOffset: 0x10, brrOffset: 0x14, lckr: 0x18,
		}
	}
}

// GpioPort models one 16-pin GPIO bank. Register map selected by profile.
// BSRR/BRR are write-only 32-bit atomic registers, buffered through a
// 4-byte commit accumulator since the bus only ever delivers one byte at a
// time.
type GpioPort struct {
	bus.NoTick

	profile GpioProfile
	layout  gpioLayout

	crl, crh             uint32
	moder, otyper        uint32
	ospeedr, pupdr       uint32
	afrl, afrh           uint32
	idr, odr, lckr       uint32

	bsrr bsrrAccumulator
	brr  bsrrAccumulator
}

// NewGpioPort creates a port with the reset values the real hardware uses
// for the given profile: STM32F1 resets to floating input
// (CRL/CRH = 0x4444_4444); STM32V2 resets to all-input, push-pull,
// low-speed, no pull.
func NewGpioPort(profile GpioProfile) *GpioPort {
	g := &GpioPort{profile: profile, layout: layoutFor(profile)}
	if profile == ProfileSTM32F1 {
		g.crl = 0x4444_4444
		g.crh = 0x4444_4444
	}
	return g
}

func (g *GpioPort) regByteLanes(base uint32) (word *uint32, laneBase uint32, ok bool) {
	type reg struct {
		off uint32
		w   *uint32
	}
	var regs []reg
	if g.profile == ProfileSTM32F1 {
		regs = []reg{
			{g.layout.crl, &g.crl}, {g.layout.crh, &g.crh},
			{g.layout.idr, &g.idr}, {g.layout.odr, &g.odr}, {g.layout.lckr, &g.lckr},
		}
	} else {
		regs = []reg{
			{g.layout.moder, &g.moder}, {g.layout.otyper, &g.otyper},
			{g.layout.ospeedr, &g.ospeedr}, {g.layout.pupdr, &g.pupdr},
			{g.layout.idr, &g.idr}, {g.layout.odr, &g.odr}, {g.layout.lckr, &g.lckr},
			{g.layout.afrl, &g.afrl}, {g.layout.afrh, &g.afrh},
		}
	}
	for _, r := range regs {
		if base >= r.off && base < r.off+4 {
			return r.w, r.off, true
		}
	}
	return nil, 0, false
}

func (g *GpioPort) Read(offset uint32) (uint8, bool) {
	if offset >= g.layout.bsrrOffset && offset < g.layout.bsrrOffset+4 {
		return 0, true // write-only
	}
	if offset >= g.layout.brrOffset && offset < g.layout.brrOffset+4 {
		return 0, true // write-only
	}
	word, base, ok := g.regByteLanes(offset)
	if !ok {
		return 0, false
	}
	lane := offset - base
	return byte(*word >> (8 * lane)), true
}

func (g *GpioPort) Write(offset uint32, value uint8) bool {
	if offset >= g.layout.bsrrOffset && offset < g.layout.bsrrOffset+4 {
		lane := offset - g.layout.bsrrOffset
		if v, committed := g.bsrr.accept(lane, value); committed {
			set := v & 0xFFFF
			reset := (v >> 16) & 0xFFFF
			// set wins over reset for the same pin.
			g.odr |= set
			g.odr &^= reset &^ set
		}
		return true
	}
	if offset >= g.layout.brrOffset && offset < g.layout.brrOffset+4 {
		lane := offset - g.layout.brrOffset
		if v, committed := g.brr.accept(lane, value); committed {
			g.odr &^= v & 0xFFFF
		}
		return true
	}

	word, base, ok := g.regByteLanes(offset)
	if !ok {
		return false
	}
	g.bsrr.reset()
	g.brr.reset()
	lane := offset - base
	*word &^= 0xFF << (8 * lane)
	*word |= uint32(value) << (8 * lane)
	if word == &g.odr {
		*word &= 0xFFFF
	}
	return true
}

type gpioState struct {
	CRL, CRH                   uint32
	MODER, OTYPER              uint32
	OSPEEDR, PUPDR             uint32
	AFRL, AFRH                 uint32
	IDR, ODR, LCKR             uint32
}

func (g *GpioPort) Snapshot() interface{} {
	return gpioState{
		CRL: g.crl, CRH: g.crh,
		MODER: g.moder, OTYPER: g.otyper,
		OSPEEDR: g.ospeedr, PUPDR: g.pupdr,
		AFRL: g.afrl, AFRH: g.afrh,
		IDR: g.idr, ODR: g.odr, LCKR: g.lckr,
	}
}

func (g *GpioPort) Restore(state interface{}) error {
	s, ok := state.(gpioState)
	if !ok {
		return errForeignState
	}
	g.crl, g.crh = s.CRL, s.CRH
	g.moder, g.otyper = s.MODER, s.OTYPER
	g.ospeedr, g.pupdr = s.OSPEEDR, s.PUPDR
	g.afrl, g.afrh = s.AFRL, s.AFRH
	g.idr, g.odr, g.lckr = s.IDR, s.ODR, s.LCKR
	g.bsrr.reset()
	g.brr.reset()
	return nil
}

// SetInput sets the IDR bits an external test or board_io binding wants the
// guest to observe on read.
func (g *GpioPort) SetInput(value uint16) {
	g.idr = uint32(value)
}

// Output returns the current ODR value (bottom 16 bits meaningful).
func (g *GpioPort) Output() uint16 {
	return uint16(g.odr)
}
