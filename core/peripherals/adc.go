package peripherals

import "github.com/w1ne/labwired/core/bus"

const (
	adcOffsetCR  = 0x00 // ADON bit 0, SWSTART bit 1
	adcOffsetSR  = 0x04 // EOC bit 1
	adcOffsetDR  = 0x08
	adcOffsetIER = 0x0C // EOCIE bit 0
)

const (
	adcCRADON    = 1 << 0
	adcCRSWSTART = 1 << 1
	adcSREOC     = 1 << 1
	adcIEREOCIE  = 1 << 0

	// adcConversionTicks is the fixed conversion latency this model uses:
	// a 14-tick conversion.
	adcConversionTicks = 14

	adcIRQ = 18 // ADC1/ADC2 global interrupt, a plausible STM32F1 IRQ number
)

// Adc models a single successive-approximation ADC channel. Setting ADON
// and SWSTART begins a fixed-latency conversion; on completion DR receives
// an incrementing value (there is no analog input model — each
// conversion just counts up, which is enough to exercise EOC/IRQ timing
// deterministically), EOC is set, and if EOCIE is set the tick raises the
// ADC's IRQ.
type Adc struct {
	cr, sr, ier uint32
	dr          uint32

	ticksRemaining int
	converting     bool
}

// NewAdc creates an idle ADC with DR at zero.
func NewAdc() *Adc {
	return &Adc{}
}

func (a *Adc) Read(offset uint32) (uint8, bool) {
	switch {
	case offset < 4:
		return byte(a.cr >> (8 * offset)), true
	case offset >= adcOffsetSR && offset < adcOffsetSR+4:
		return byte(a.sr >> (8 * (offset - adcOffsetSR))), true
	case offset >= adcOffsetDR && offset < adcOffsetDR+4:
		return byte(a.dr >> (8 * (offset - adcOffsetDR))), true
	case offset >= adcOffsetIER && offset < adcOffsetIER+4:
		return byte(a.ier >> (8 * (offset - adcOffsetIER))), true
	default:
		return 0, false
	}
}

func (a *Adc) Write(offset uint32, value uint8) bool {
	switch {
	case offset < 4:
		lane := offset
		a.cr &^= 0xFF << (8 * lane)
		a.cr |= uint32(value) << (8 * lane)
		if a.cr&adcCRADON != 0 && a.cr&adcCRSWSTART != 0 && !a.converting {
			a.converting = true
			a.ticksRemaining = adcConversionTicks
			a.sr &^= adcSREOC
			a.cr &^= adcCRSWSTART
		}
		return true
	case offset >= adcOffsetSR && offset < adcOffsetSR+4:
		lane := offset - adcOffsetSR
		a.sr &^= 0xFF << (8 * lane)
		a.sr |= uint32(value) << (8 * lane)
		return true
	case offset >= adcOffsetDR && offset < adcOffsetDR+4:
		return true // read-only in hardware; ignore writes
	case offset >= adcOffsetIER && offset < adcOffsetIER+4:
		lane := offset - adcOffsetIER
		a.ier &^= 0xFF << (8 * lane)
		a.ier |= uint32(value) << (8 * lane)
		return true
	default:
		return false
	}
}

func (a *Adc) Tick() bus.TickResult {
	if !a.converting {
		return bus.Quiet
	}
	a.ticksRemaining--
	if a.ticksRemaining > 0 {
		return bus.Quiet
	}

	a.converting = false
	a.dr++
	a.sr |= adcSREOC
	if a.ier&adcIEREOCIE != 0 {
		return bus.TickResult{ExplicitIRQs: []uint32{adcIRQ}}
	}
	return bus.Quiet
}

type adcState struct {
	CR, SR, IER, DR          uint32
	TicksRemaining           int
	Converting               bool
}

func (a *Adc) Snapshot() interface{} {
	return adcState{CR: a.cr, SR: a.sr, IER: a.ier, DR: a.dr, TicksRemaining: a.ticksRemaining, Converting: a.converting}
}

func (a *Adc) Restore(state interface{}) error {
	s, ok := state.(adcState)
	if !ok {
		return errForeignState
	}
	a.cr, a.sr, a.ier, a.dr = s.CR, s.SR, s.IER, s.DR
	a.ticksRemaining, a.converting = s.TicksRemaining, s.Converting
	return nil
}
