package peripherals

import "github.com/w1ne/labwired/core/bus"

const (
	systickOffsetCSR = 0x00
	systickOffsetRVR = 0x04
	systickOffsetCVR = 0x08
	systickOffsetCALIB = 0x0C
)

const (
	systickCSREnable    = 1 << 0
	systickCSRTickInt   = 1 << 1
	systickCSRCountFlag = 1 << 16
)

// SysTick is the Cortex-M core's 24-bit count-down timer: each tick
// decrements CVR; a tick that finds CVR at zero reloads it from RVR and
// latches COUNTFLAG instead, so a reload value of R wraps every R+1 ticks;
// if TICKINT is set, the wrapping tick raises IRQ 15 (a core exception,
// delivered directly rather than arbitrated through the NVIC).
type SysTick struct {
	csr, rvr, cvr uint32
}

// NewSysTick creates a disabled SysTick with all registers zeroed.
func NewSysTick() *SysTick {
	return &SysTick{}
}

func (s *SysTick) regWord(offset uint32) (*uint32, uint32, bool) {
	switch {
	case offset >= systickOffsetCSR && offset < systickOffsetCSR+4:
		return &s.csr, systickOffsetCSR, true
	case offset >= systickOffsetRVR && offset < systickOffsetRVR+4:
		return &s.rvr, systickOffsetRVR, true
	case offset >= systickOffsetCVR && offset < systickOffsetCVR+4:
		return &s.cvr, systickOffsetCVR, true
	case offset >= systickOffsetCALIB && offset < systickOffsetCALIB+4:
		var zero uint32
		return &zero, systickOffsetCALIB, true
	default:
		return nil, 0, false
	}
}

func (s *SysTick) Read(offset uint32) (uint8, bool) {
	word, base, ok := s.regWord(offset)
	if !ok {
		return 0, false
	}
	lane := offset - base
	value := byte(*word >> (8 * lane))
	if base == systickOffsetCSR && lane == 2 {
		// COUNTFLAG (bit 16) lives in the CSR's third byte; reading CSR
		// clears it, matching real Cortex-M SysTick semantics.
		s.csr &^= systickCSRCountFlag
	}
	return value, true
}

func (s *SysTick) Write(offset uint32, value uint8) bool {
	word, base, ok := s.regWord(offset)
	if !ok {
		return false
	}
	if base == systickOffsetCALIB {
		return true // read-only, ignore silently
	}
	lane := offset - base
	*word &^= 0xFF << (8 * lane)
	*word |= uint32(value) << (8 * lane)
	if base == systickOffsetCVR {
		// A write of any value to CVR clears it and COUNTFLAG.
		s.cvr = 0
		s.csr &^= systickCSRCountFlag
	}
	return true
}

// Tick decrements CVR by one if enabled. A tick that finds CVR at zero
// reloads it from RVR instead, latches COUNTFLAG, and if TICKINT is set the
// result carries IRQ 15. With RVR at zero the counter never wraps.
func (s *SysTick) Tick() bus.TickResult {
	if s.csr&systickCSREnable == 0 {
		return bus.Quiet
	}
	if s.cvr != 0 {
		s.cvr--
		return bus.Quiet
	}
	if s.rvr == 0 {
		return bus.Quiet
	}

	s.cvr = s.rvr
	s.csr |= systickCSRCountFlag
	if s.csr&systickCSRTickInt != 0 {
		return bus.TickResult{ExplicitIRQs: []uint32{15}}
	}
	return bus.Quiet
}

type systickState struct {
	CSR, RVR, CVR uint32
}

func (s *SysTick) Snapshot() interface{} {
	return systickState{CSR: s.csr, RVR: s.rvr, CVR: s.cvr}
}

func (s *SysTick) Restore(state interface{}) error {
	v, ok := state.(systickState)
	if !ok {
		return errForeignState
	}
	s.csr, s.rvr, s.cvr = v.CSR, v.RVR, v.CVR
	return nil
}
