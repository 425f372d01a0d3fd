// Package bus defines the peripheral contract: the uniform interface every
// memory region and every peripheral implements, and the small value types
// (TickResult, DMARequest) that flow between a peripheral and the system
// bus that owns it. For an explanation of how these pieces fit together see
// the systembus package, which is the concrete implementation of the system
// bus.
//
// Grounded on the CPUBus/ChipBus/DebuggerBus split used for the Atari
// 2600's memory map; here the contract is peripheral-oriented rather than
// address-range oriented, matching how a memory-mapped peripheral bus is
// actually addressed.
package bus

import "sync"

// Direction distinguishes the kinds of DMA request a peripheral tick can
// produce.
type Direction int

const (
	// Write means the bus should write Value to guest memory at Address.
	Write Direction = iota

	// Copy means the bus should read the byte at Address and write it
	// unchanged to DestAddress, both addresses on the same system bus
	// (guest RAM, flash, or a peripheral window). This is how a DMA
	// channel actually moves data: the channel names the current source
	// and destination offsets, and the bus performs the single-byte
	// transfer atomically within one request rather than the channel
	// having to read memory itself.
	Copy
)

// DMARequest is a single byte-granular memory access a peripheral asks the
// system bus to perform on its behalf during a tick.
type DMARequest struct {
	Address     uint32
	Value       uint8
	Direction   Direction
	DestAddress uint32 // only meaningful when Direction is Copy
}

// TickResult is what a peripheral reports back from Tick().
type TickResult struct {
	// IRQSet asserts the peripheral entry's own configured IRQ number, if
	// it has one.
	IRQSet bool

	// Cycles is the cost, in core clock cycles, this peripheral's tick
	// consumed, added to the orchestrator's running cycle counter.
	Cycles uint32

	// DMARequests are fulfilled by the bus in order, immediately after all
	// peripherals have been ticked for this step.
	DMARequests []DMARequest

	// ExplicitIRQs lists additional IRQ numbers to pend, independent of
	// IRQSet/the entry's own IRQ — used by declarative timing hooks whose
	// action names an interrupt, and by peripherals (eg. DMA channels)
	// that can raise an IRQ unrelated to their own entry.
	ExplicitIRQs []uint32
}

// Quiet is the zero-value TickResult: no IRQ, no cycles, nothing pending.
// Peripherals with nothing to report on a given tick can return this
// directly instead of constructing a literal.
var Quiet = TickResult{}

// Merge folds other into r in place, used by the system bus while walking
// its peripheral list.
func (r *TickResult) Merge(other TickResult) {
	r.Cycles += other.Cycles
	if len(other.DMARequests) > 0 {
		r.DMARequests = append(r.DMARequests, other.DMARequests...)
	}
	if len(other.ExplicitIRQs) > 0 {
		r.ExplicitIRQs = append(r.ExplicitIRQs, other.ExplicitIRQs...)
	}
}

// Peripheral is the uniform contract every memory-mapped device on the
// system bus implements.
type Peripheral interface {
	// Read returns the byte at offset within this peripheral's window, or
	// ok=false if offset is outside anything the peripheral recognises
	// (which the bus treats as a MemoryViolation, since peripheral windows
	// are never partially populated by precondition).
	Read(offset uint32) (value uint8, ok bool)

	// Write stores value at offset within this peripheral's window. ok is
	// false under the same circumstances as Read.
	Write(offset uint32, value uint8) (ok bool)

	// Tick advances the peripheral's internal state machine by one step
	// (one CPU instruction's worth of guest time) and reports the result.
	// A peripheral with no timing behavior can embed NoTick to satisfy
	// this trivially.
	Tick() TickResult

	// Snapshot returns an opaque, peripheral-defined representation of
	// this peripheral's entire internal state, suitable for round-trip
	// through Restore.
	Snapshot() interface{}

	// Restore replaces this peripheral's internal state with state
	// previously produced by Snapshot. It is an error for state to have
	// been produced by a different peripheral type.
	Restore(state interface{}) error
}

// Downcastable is the optional extra a built-in peripheral exposes when
// something outside the bus (eg. a UART capture hook) needs privileged
// access beyond the uniform Peripheral contract.
type Downcastable interface {
	// As attempts to populate target, which must be a pointer to a
	// concrete peripheral type, with this peripheral's own pointer. It
	// reports whether the downcast succeeded.
	As(target interface{}) bool
}

// NoTick can be embedded in a peripheral that never produces interrupts,
// cycle costs or DMA requests, so it only needs to implement Read/Write and
// Snapshot/Restore.
type NoTick struct{}

// Tick always reports the quiet result.
func (NoTick) Tick() TickResult { return Quiet }

// Entry is a single slot on the system bus: a name, an address window, an
// optional IRQ number, and the peripheral instance that owns the window.
// Windows are non-overlapping by precondition — the bus does not check for
// overlap, core/config does, before any Entry is constructed.
type Entry struct {
	Name string
	Base uint32
	Size uint32
	IRQ  *uint32
	Dev  Peripheral
}

// Contains reports whether address falls within this entry's window.
func (e Entry) Contains(address uint32) bool {
	return address >= e.Base && address < e.Base+e.Size
}

// Sink is the mutex-guarded byte buffer a UART peripheral's transmit
// register writes into, shared with whatever external consumer (test
// harness, interactive console) wants to observe guest output. Defined here,
// rather than in the uart peripheral package, because sink attachment is a
// bus-level operation that reaches every UART-typed peripheral on the bus.
type Sink struct {
	mu     sync.Mutex
	buf    []byte
	echo   bool
	writer func([]byte)
}

// NewSink creates an empty Sink. When echo is true, every captured byte is
// also forwarded to an attached writer (see SetEchoWriter). A UART sink
// failure is non-fatal and never propagates to the guest, so
// SetEchoWriter's callback is never allowed to return an error.
func NewSink(echo bool) *Sink {
	return &Sink{echo: echo}
}

// SetEchoWriter installs the callback invoked for every captured byte when
// echo is enabled.
func (s *Sink) SetEchoWriter(w func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Capture appends b to the sink's buffer and, if echo is enabled, forwards
// it to the installed writer.
func (s *Sink) Capture(b uint8) {
	s.mu.Lock()
	s.buf = append(s.buf, b)
	w := s.writer
	echo := s.echo
	s.mu.Unlock()

	if echo && w != nil {
		w([]byte{b})
	}
}

// Bytes returns a copy of everything captured so far.
func (s *Sink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Len reports how many bytes have been captured, used by the stop-condition
// evaluator's MaxUartBytes limit.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Reset discards everything captured so far.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = s.buf[:0]
}
