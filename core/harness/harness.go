// Package harness implements the external loop driver: the thing that
// drives Machine.Step in a loop enforcing the four deterministic
// stop-condition limits (plus wall time), and reports which one fired
// first.
//
// Grounded on original_source/crates/cli/src/main.rs's test-runner loop
// (the same five-limit check-every-step shape) and the
// debugger/loop_debugger.go input loop, which drives stepping under a
// not-dissimilar stop-condition check each iteration.
package harness

import (
	"time"

	"github.com/w1ne/labwired/core/bus"
	"github.com/w1ne/labwired/core/config"
	"github.com/w1ne/labwired/core/machine"
	"github.com/w1ne/labwired/core/result"
	"github.com/w1ne/labwired/internal/errors"
)

func isMemoryViolation(err error) bool { return errors.Has(err, errors.MemoryViolation) }
func isDecodeError(err error) bool     { return errors.Has(err, errors.DecodeError) }
func isHalt(err error) bool            { return errors.Has(err, errors.Halt) }

// Harness drives a Machine under a TestLimits budget, reporting the
// first stop condition to trigger in priority order: Breakpoint >
// MemoryViolation/DecodeError > MaxSteps > MaxCycles > MaxUartBytes >
// NoProgress > WallTime.
type Harness struct {
	m      *machine.Machine
	limits config.TestLimits
	sink   *bus.Sink

	startWall time.Time

	lastPC        uint32
	haveLastPC    bool
	progressCount uint64
}

// New creates a Harness driving m under limits, attaching its own UART
// sink so MaxUartBytes can be evaluated.
func New(m *machine.Machine, limits config.TestLimits) *Harness {
	h := &Harness{
		m:      m,
		limits: limits,
		sink:   bus.NewSink(false),
	}
	h.m.Bus.AttachUARTSink(h.sink)
	return h
}

// Sink returns the UART sink the Harness attached, so a caller can read
// captured bytes after the run.
func (h *Harness) Sink() *bus.Sink {
	return h.sink
}

// currentPC reads the active CPU's program counter through the debug
// facade, avoiding any architecture-specific branching here.
func (h *Harness) currentPC() uint32 {
	pc, _ := h.m.ReadRegister("pc")
	return pc
}

// Run drives Step until one of the configured limits triggers (or the
// machine itself halts or errors first, in priority order), returning
// the triggered condition and the observed value that caused it.
func (h *Harness) Run() (config.StopReason, result.StopReasonDetails) {
	h.startWall = time.Now()
	h.haveLastPC = false
	h.progressCount = 0

	for {
		if reason, details, ok := h.checkNonStepLimits(); ok {
			return reason, details
		}

		err := h.m.Step()
		if err != nil {
			return h.classifyStepError(err)
		}

		if reason, details, ok := h.checkProgressAndSteps(); ok {
			return reason, details
		}
	}
}

func (h *Harness) checkNonStepLimits() (config.StopReason, result.StopReasonDetails, bool) {
	if h.limits.WallTimeMs != nil {
		elapsed := uint64(time.Since(h.startWall).Milliseconds())
		if elapsed >= *h.limits.WallTimeMs {
			return config.StopReasonWallTime, result.StopReasonDetails{
				TriggeredStopCondition: config.StopReasonWallTime,
				TriggeredLimit:         &result.NamedValue{Name: "wall_time_ms", Value: *h.limits.WallTimeMs},
				Observed:               &result.NamedValue{Name: "wall_time_ms", Value: elapsed},
			}, true
		}
	}
	return "", result.StopReasonDetails{}, false
}

func (h *Harness) checkProgressAndSteps() (config.StopReason, result.StopReasonDetails, bool) {
	pc := h.currentPC()
	if h.haveLastPC && pc == h.lastPC {
		h.progressCount++
	} else {
		h.progressCount = 0
	}
	h.lastPC = pc
	h.haveLastPC = true

	steps := h.m.Steps()
	if steps >= h.limits.MaxSteps {
		return config.StopReasonMaxSteps, result.StopReasonDetails{
			TriggeredStopCondition: config.StopReasonMaxSteps,
			TriggeredLimit:         &result.NamedValue{Name: "max_steps", Value: h.limits.MaxSteps},
			Observed:               &result.NamedValue{Name: "max_steps", Value: steps},
		}, true
	}
	if h.limits.MaxCycles != nil {
		cycles := h.m.Cycles()
		if cycles >= *h.limits.MaxCycles {
			return config.StopReasonMaxCycles, result.StopReasonDetails{
				TriggeredStopCondition: config.StopReasonMaxCycles,
				TriggeredLimit:         &result.NamedValue{Name: "max_cycles", Value: *h.limits.MaxCycles},
				Observed:               &result.NamedValue{Name: "max_cycles", Value: cycles},
			}, true
		}
	}
	if h.limits.MaxUartBytes != nil {
		n := uint64(h.sink.Len())
		if n >= *h.limits.MaxUartBytes {
			return config.StopReasonMaxUartBytes, result.StopReasonDetails{
				TriggeredStopCondition: config.StopReasonMaxUartBytes,
				TriggeredLimit:         &result.NamedValue{Name: "max_uart_bytes", Value: *h.limits.MaxUartBytes},
				Observed:               &result.NamedValue{Name: "max_uart_bytes", Value: n},
			}, true
		}
	}
	if h.limits.NoProgressSteps != nil && h.progressCount >= *h.limits.NoProgressSteps {
		return config.StopReasonNoProgress, result.StopReasonDetails{
			TriggeredStopCondition: config.StopReasonNoProgress,
			TriggeredLimit:         &result.NamedValue{Name: "no_progress_steps", Value: *h.limits.NoProgressSteps},
			Observed:               &result.NamedValue{Name: "no_progress_steps", Value: h.progressCount},
		}, true
	}
	return "", result.StopReasonDetails{}, false
}

// classifyStepError maps a Step error into the Breakpoint/MemoryViolation/
// DecodeError stop reasons, which always outrank the step/cycle/byte/
// progress/wall-time limits above — this is why they are checked against
// the error Step itself returned, not folded into
// checkProgressAndSteps's post-step polling.
func (h *Harness) classifyStepError(err error) (config.StopReason, result.StopReasonDetails) {
	reason := config.StopReasonHalt
	switch {
	case isMemoryViolation(err):
		reason = config.StopReasonMemoryViolation
	case isDecodeError(err):
		reason = config.StopReasonDecodeError
	case isHalt(err):
		reason = config.StopReasonHalt
	}
	return reason, result.StopReasonDetails{TriggeredStopCondition: reason}
}
