// Package declarative implements the peripheral descriptor types and the
// interpreter that executes them. A descriptor describes a register map
// and a set of timed actions entirely in data; the interpreter
// (Interpreter) is the one piece of code that turns any well-formed
// descriptor into a working bus.Peripheral, which is how this repository
// models the long tail of peripherals (Timer, I²C, ...) that don't need a
// hand-written state machine.
//
// Grounded on original_source/crates/config/src/lib.rs (the descriptor
// shape) and original_source/crates/core/src/peripherals/declarative.rs
// (the interpreter semantics); expressed here in a declarative, data-driven
// style (compare hardware/cpu/definitions, which is also a flat table of
// instruction behavior rather than a chain of special cases).
package declarative

// Access controls whether a register accepts reads, writes, or both.
type Access int

const (
	ReadWrite Access = iota
	ReadOnly
	WriteOnly
)

// ReadAction is a side effect applied to a register's backing byte after a
// read completes.
type ReadAction int

const (
	// NoReadAction leaves the backing byte untouched.
	NoReadAction ReadAction = iota
	// ClearOnRead zeroes the backing byte immediately after it is read.
	ClearOnRead
)

// WriteAction determines how a written byte is combined with the register's
// existing backing byte.
type WriteAction int

const (
	// DirectWrite stores the written byte as-is.
	DirectWrite WriteAction = iota
	// WriteOneToClear computes byte &= ^value: bits set in the written
	// value clear the corresponding bits in the register.
	WriteOneToClear
	// WriteZeroToClear computes byte &= value: bits clear in the written
	// value clear the corresponding bits in the register.
	WriteZeroToClear
)

// SideEffects bundles the read/write actions for a single register.
type SideEffects struct {
	ReadAction  ReadAction
	WriteAction WriteAction
}

// Field documents a named bit range within a register. Fields are purely
// descriptive — the interpreter does not use them for read/write semantics,
// only timing-hook value/mask matching does, and then only via the
// register's raw byte value.
type Field struct {
	Name        string
	MSB, LSB    uint8
	Description string
}

// RegisterSize is the bit width of a register's backing storage.
type RegisterSize int

const (
	Size8  RegisterSize = 8
	Size16 RegisterSize = 16
	Size32 RegisterSize = 32
)

// Register describes one memory-mapped register within a peripheral.
type Register struct {
	ID            string
	AddressOffset uint32
	Size          RegisterSize
	Access        Access
	ResetValue    uint32
	Fields        []Field
	SideEffects   *SideEffects
}

// byteLen returns how many bytes this register occupies.
func (r Register) byteLen() uint32 {
	return uint32(r.Size) / 8
}

// TriggerKind distinguishes the three kinds of timing-hook trigger.
type TriggerKind int

const (
	TriggerWrite TriggerKind = iota
	TriggerRead
	TriggerPeriodic
)

// Trigger describes when a timing hook fires.
type Trigger struct {
	Kind TriggerKind

	// Register is the register ID this trigger watches. Unused for
	// TriggerPeriodic.
	Register string

	// Value and Mask are used only by TriggerWrite: when Value is
	// non-nil, the trigger fires only if the written byte, shifted into
	// the register's bit position, matches Value under Mask (or under
	// all-ones if Mask is nil). When Value is nil, any write to Register
	// fires the trigger.
	Value *uint32
	Mask  *uint32

	// PeriodCycles is used only by TriggerPeriodic.
	PeriodCycles uint64
}

// ActionKind distinguishes the three kinds of timing-hook action.
type ActionKind int

const (
	ActionSetBits ActionKind = iota
	ActionClearBits
	ActionWriteValue
)

// Action describes what a timing hook does once it fires.
type Action struct {
	Kind     ActionKind
	Register string
	Value    uint32 // bits for Set/ClearBits, the literal value for WriteValue
}

// TimingHook ties a Trigger to a delayed Action, optionally raising a named
// interrupt when the action executes.
type TimingHook struct {
	ID           string
	Trigger      Trigger
	DelayCycles  uint64
	Action       Action
	InterruptName string
}

// Descriptor is the complete, data-only definition of a peripheral: its
// registers, the symbolic names for the IRQ numbers its timing hooks may
// raise, and its timing hooks.
type Descriptor struct {
	Peripheral string
	Version    string
	Registers  []Register
	Interrupts map[string]uint32
	Timing     []TimingHook
}

// RegisterByID returns the register with the given ID, or ok=false if none
// matches.
func (d *Descriptor) RegisterByID(id string) (Register, bool) {
	for _, r := range d.Registers {
		if r.ID == id {
			return r, true
		}
	}
	return Register{}, false
}

// registerAt returns the register containing offset, or ok=false if none
// does.
func (d *Descriptor) registerAt(offset uint32) (Register, bool) {
	for _, r := range d.Registers {
		start := r.AddressOffset
		end := start + r.byteLen()
		if offset >= start && offset < end {
			return r, true
		}
	}
	return Register{}, false
}

// Span returns the byte size the interpreter must allocate to hold every
// declared register: the highest offset+size/8 among them.
func (d *Descriptor) Span() uint32 {
	var max uint32
	for _, r := range d.Registers {
		end := r.AddressOffset + r.byteLen()
		if end > max {
			max = end
		}
	}
	return max
}
