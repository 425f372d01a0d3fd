package declarative

import "github.com/w1ne/labwired/core/bus"

// inflightEvent is a timing hook that has fired and is counting down to its
// action, or a periodic hook waiting to fire again.
type inflightEvent struct {
	delayRemaining  uint64
	action          Action
	interruptName   string
	periodicInterval *uint64 // non-nil only for periodic hooks
}

// Interpreter is the generic bus.Peripheral that executes a Descriptor.
// Constructing one allocates a flat backing buffer sized to Descriptor.Span
// and initializes it to the concatenated, little-endian reset values of
// every register.
type Interpreter struct {
	descriptor Descriptor
	data       []byte
	inflight   []inflightEvent
}

// New builds an Interpreter from descriptor. Periodic timing hooks are
// armed immediately so their first firing happens PeriodCycles+1 ticks
// after construction: a hook's delay counts down before it first fires,
// not after.
func New(descriptor Descriptor) *Interpreter {
	in := &Interpreter{
		descriptor: descriptor,
		data:       make([]byte, descriptor.Span()),
	}
	for _, r := range descriptor.Registers {
		putLE(in.data[r.AddressOffset:], uint32(r.Size), r.ResetValue)
	}
	for _, hook := range descriptor.Timing {
		if hook.Trigger.Kind == TriggerPeriodic {
			period := hook.Trigger.PeriodCycles
			in.inflight = append(in.inflight, inflightEvent{
				delayRemaining:   period,
				action:           hook.Action,
				interruptName:    hook.InterruptName,
				periodicInterval: &period,
			})
		}
	}
	return in
}

// Descriptor returns the descriptor this interpreter was built from.
func (in *Interpreter) Descriptor() *Descriptor {
	return &in.descriptor
}

func putLE(dst []byte, bits uint32, value uint32) {
	n := bits / 8
	for i := uint32(0); i < n; i++ {
		dst[i] = byte(value >> (8 * i))
	}
}

// Read implements bus.Peripheral.
func (in *Interpreter) Read(offset uint32) (uint8, bool) {
	reg, ok := in.descriptor.registerAt(offset)
	if !ok {
		return 0, false
	}
	if reg.Access == WriteOnly {
		return 0, true
	}

	value := in.data[offset]

	if reg.SideEffects != nil && reg.SideEffects.ReadAction == ClearOnRead {
		in.data[offset] = 0
	}

	in.checkTriggers(reg.ID, TriggerRead, 0, false)
	return value, true
}

// Write implements bus.Peripheral.
func (in *Interpreter) Write(offset uint32, value uint8) bool {
	reg, ok := in.descriptor.registerAt(offset)
	if !ok {
		return false
	}
	if reg.Access == ReadOnly {
		return true
	}

	if reg.SideEffects != nil {
		switch reg.SideEffects.WriteAction {
		case WriteOneToClear:
			in.data[offset] &^= value
		case WriteZeroToClear:
			in.data[offset] &= value
		default:
			in.data[offset] = value
		}
	} else {
		in.data[offset] = value
	}

	// Because writes arrive byte-wise, shift the byte into the register's
	// bit position before matching a write trigger's Value/Mask. This is a
	// deliberate approximation: a trigger that expects a full 32-bit value
	// written across several byte writes only ever sees one byte's worth of
	// that value at a time.
	byteOffset := offset - reg.AddressOffset
	shifted := uint32(value) << (8 * byteOffset)
	in.checkTriggers(reg.ID, TriggerWrite, shifted, true)
	return true
}

func (in *Interpreter) checkTriggers(registerID string, kind TriggerKind, shiftedValue uint32, isWrite bool) {
	for _, hook := range in.descriptor.Timing {
		if hook.Trigger.Kind == TriggerPeriodic {
			continue
		}
		if hook.Trigger.Kind != kind || hook.Trigger.Register != registerID {
			continue
		}
		if kind == TriggerRead && isWrite {
			continue
		}
		if kind == TriggerWrite {
			if !isWrite {
				continue
			}
			if hook.Trigger.Value != nil {
				mask := ^uint32(0)
				if hook.Trigger.Mask != nil {
					mask = *hook.Trigger.Mask
				}
				if (shiftedValue & mask) != (*hook.Trigger.Value & mask) {
					continue
				}
			}
		}
		in.inflight = append(in.inflight, inflightEvent{
			delayRemaining: hook.DelayCycles,
			action:         hook.Action,
			interruptName:  hook.InterruptName,
		})
	}
}

func (in *Interpreter) applyAction(a Action) {
	reg, ok := in.descriptor.RegisterByID(a.Register)
	if !ok {
		return
	}
	n := uint32(reg.Size) / 8
	for i := uint32(0); i < n; i++ {
		shift := 8 * i
		b := byte((a.Value >> shift) & 0xFF)
		idx := reg.AddressOffset + i
		switch a.Kind {
		case ActionSetBits:
			in.data[idx] |= b
		case ActionClearBits:
			in.data[idx] &^= b
		case ActionWriteValue:
			in.data[idx] = b
		}
	}
}

// Tick implements bus.Peripheral. Every in-flight event's delay is
// decremented once. A triggered event fires its action on the tick its
// delay reaches zero; a periodic event fires on the following tick, so it
// recurs every PeriodCycles+1 ticks. Fired periodic hooks are re-armed only
// after every event in this tick has been processed, so a zero-delay
// periodic hook cannot recurse within the same tick.
func (in *Interpreter) Tick() bus.TickResult {
	var result bus.TickResult

	var remaining []inflightEvent
	var rearm []inflightEvent

	for _, ev := range in.inflight {
		if ev.delayRemaining > 0 {
			ev.delayRemaining--
			if ev.delayRemaining > 0 || ev.periodicInterval != nil {
				remaining = append(remaining, ev)
				continue
			}
		}
		in.applyAction(ev.action)
		if ev.interruptName != "" {
			if irq, ok := in.descriptor.Interrupts[ev.interruptName]; ok {
				result.ExplicitIRQs = append(result.ExplicitIRQs, irq)
			}
		}
		if ev.periodicInterval != nil {
			rearm = append(rearm, inflightEvent{
				delayRemaining:   *ev.periodicInterval,
				action:           ev.action,
				interruptName:    ev.interruptName,
				periodicInterval: ev.periodicInterval,
			})
		}
	}

	in.inflight = append(remaining, rearm...)
	return result
}

// interpreterState is the opaque snapshot representation for an Interpreter.
type interpreterState struct {
	Data     []byte
	Inflight []inflightEvent
}

// Snapshot implements bus.Peripheral.
func (in *Interpreter) Snapshot() interface{} {
	data := make([]byte, len(in.data))
	copy(data, in.data)
	inflight := make([]inflightEvent, len(in.inflight))
	copy(inflight, in.inflight)
	return interpreterState{Data: data, Inflight: inflight}
}

// Restore implements bus.Peripheral.
func (in *Interpreter) Restore(state interface{}) error {
	s, ok := state.(interpreterState)
	if !ok {
		return errNotInterpreterState
	}
	in.data = make([]byte, len(s.Data))
	copy(in.data, s.Data)
	in.inflight = make([]inflightEvent, len(s.Inflight))
	copy(in.inflight, s.Inflight)
	return nil
}

type stateErr string

func (e stateErr) Error() string { return string(e) }

const errNotInterpreterState = stateErr("declarative: snapshot state is not from an Interpreter")
