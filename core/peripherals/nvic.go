package peripherals

import (
	"sync/atomic"

	"github.com/w1ne/labwired/core/bus"
)

// nvicWords is the number of 32-bit ISER/ICER/ISPR words, covering IRQs
// 16..271 (8*32) — capped at eight words, enough external IRQ lines for
// any chip descriptor this simulator is expected to model.
const nvicWords = 8

// NVIC is the Nested Vectored Interrupt Controller shared state: an
// enable-set, a pending-set, and a VTOR register, all atomic so the CPU and
// the system bus can touch them from different call sites without a data
// race while still being sequentially consistent. It is not itself
// inserted on the bus as the primary
// peripheral entry for its register window — NVICRegisters below adapts
// it to bus.Peripheral for the 0xE000E100/E180/E200 window, while VTOR is
// exposed at 0xE000ED08.
type NVIC struct {
	iser [nvicWords]uint32
	icer [nvicWords]uint32 // mirrors iser; ICER write clears
	ispr [nvicWords]uint32
	vtor uint32
}

// NewNVIC creates a shared NVIC with VTOR at the given reset value (usually
// 0, meaning the vector table starts at address 0).
func NewNVIC(vtor uint32) *NVIC {
	n := &NVIC{}
	atomic.StoreUint32(&n.vtor, vtor)
	return n
}

// SignalIRQ pends IRQ n (n >= 16): sets bit (n-16)%32 in ISPR[(n-16)/32].
// IRQs below 16 are core exceptions and are not handled here; see the
// Machine orchestrator.
func (n *NVIC) SignalIRQ(irq uint32) {
	if irq < 16 {
		return
	}
	idx := (irq - 16) / 32
	bit := (irq - 16) % 32
	if idx >= nvicWords {
		return
	}
	for {
		old := atomic.LoadUint32(&n.ispr[idx])
		next := old | (1 << bit)
		if atomic.CompareAndSwapUint32(&n.ispr[idx], old, next) {
			return
		}
	}
}

// Unpend clears IRQ n's pending bit, called by the CPU when it enters the
// exception handler for n: a pending bit is cleared exactly once, when the
// interrupt is actually serviced.
func (n *NVIC) Unpend(irq uint32) {
	if irq < 16 {
		return
	}
	idx := (irq - 16) / 32
	bit := (irq - 16) % 32
	if idx >= nvicWords {
		return
	}
	for {
		old := atomic.LoadUint32(&n.ispr[idx])
		next := old &^ (1 << bit)
		if atomic.CompareAndSwapUint32(&n.ispr[idx], old, next) {
			return
		}
	}
}

// DispatchableIRQs scans ISER & ISPR and returns every currently
// dispatchable external IRQ number, in ascending order.
func (n *NVIC) DispatchableIRQs() []uint32 {
	var out []uint32
	for idx := 0; idx < nvicWords; idx++ {
		mask := atomic.LoadUint32(&n.iser[idx]) & atomic.LoadUint32(&n.ispr[idx])
		if mask == 0 {
			continue
		}
		for bit := uint32(0); bit < 32; bit++ {
			if mask&(1<<bit) != 0 {
				out = append(out, 16+uint32(idx)*32+bit)
			}
		}
	}
	return out
}

// VTOR returns the current vector table offset register value.
func (n *NVIC) VTOR() uint32 {
	return atomic.LoadUint32(&n.vtor)
}

// SetVTOR stores a new vector table offset.
func (n *NVIC) SetVTOR(v uint32) {
	atomic.StoreUint32(&n.vtor, v)
}

// VTORPointer exposes the underlying VTOR cell so the ARM interpreter can
// read it with its own atomic load without going through method calls on
// every fetch. Both sides must only touch it via sync/atomic.
func (n *NVIC) VTORPointer() *uint32 {
	return &n.vtor
}

type nvicState struct {
	ISER, ISPR [nvicWords]uint32
	VTOR       uint32
}

// Snapshot captures the NVIC's entire state for inclusion in a machine
// snapshot. NVIC itself is not a bus.Peripheral (it is shared, reference
// state rather than an address-mapped device); NVICRegisters below is.
func (n *NVIC) Snapshot() interface{} {
	var s nvicState
	for i := 0; i < nvicWords; i++ {
		s.ISER[i] = atomic.LoadUint32(&n.iser[i])
		s.ISPR[i] = atomic.LoadUint32(&n.ispr[i])
	}
	s.VTOR = atomic.LoadUint32(&n.vtor)
	return s
}

func (n *NVIC) Restore(state interface{}) error {
	s, ok := state.(nvicState)
	if !ok {
		return errForeignState
	}
	for i := 0; i < nvicWords; i++ {
		atomic.StoreUint32(&n.iser[i], s.ISER[i])
		atomic.StoreUint32(&n.ispr[i], s.ISPR[i])
	}
	atomic.StoreUint32(&n.vtor, s.VTOR)
	return nil
}

// NVICRegisters adapts an NVIC to bus.Peripheral for the register windows
// mapped at 0xE000E100 (ISER), 0xE000E180 (ICER) and 0xE000E200 (ISPR).
// Each window is nvicWords*4 bytes wide; offsets within a window address
// one of the eight 32-bit words byte-wise, little-endian.
type NVICRegisters struct {
	bus.NoTick
	nvic *NVIC
	kind nvicWindowKind
}

type nvicWindowKind int

const (
	WindowISER nvicWindowKind = iota
	WindowICER
	WindowISPR
)

// NewNVICRegisters adapts nvic for the register window identified by kind.
func NewNVICRegisters(nvic *NVIC, kind nvicWindowKind) *NVICRegisters {
	return &NVICRegisters{nvic: nvic, kind: kind}
}

func (r *NVICRegisters) wordAndLane(offset uint32) (idx, lane uint32, ok bool) {
	idx = offset / 4
	lane = offset % 4
	return idx, lane, idx < nvicWords
}

func (r *NVICRegisters) Read(offset uint32) (uint8, bool) {
	idx, lane, ok := r.wordAndLane(offset)
	if !ok {
		return 0, false
	}
	var word uint32
	switch r.kind {
	case WindowISER, WindowICER:
		word = atomic.LoadUint32(&r.nvic.iser[idx])
	case WindowISPR:
		word = atomic.LoadUint32(&r.nvic.ispr[idx])
	}
	return byte(word >> (8 * lane)), true
}

func (r *NVICRegisters) Write(offset uint32, value uint8) bool {
	idx, lane, ok := r.wordAndLane(offset)
	if !ok {
		return false
	}
	shift := 8 * lane
	bitMask := uint32(value) << shift
	switch r.kind {
	case WindowISER:
		for {
			old := atomic.LoadUint32(&r.nvic.iser[idx])
			next := old | bitMask
			if atomic.CompareAndSwapUint32(&r.nvic.iser[idx], old, next) {
				break
			}
		}
	case WindowICER:
		for {
			old := atomic.LoadUint32(&r.nvic.iser[idx])
			next := old &^ bitMask
			if atomic.CompareAndSwapUint32(&r.nvic.iser[idx], old, next) {
				break
			}
		}
	case WindowISPR:
		for {
			old := atomic.LoadUint32(&r.nvic.ispr[idx])
			next := old | bitMask
			if atomic.CompareAndSwapUint32(&r.nvic.ispr[idx], old, next) {
				break
			}
		}
	}
	return true
}

func (r *NVICRegisters) Snapshot() interface{} { return r.nvic.Snapshot() }
func (r *NVICRegisters) Restore(state interface{}) error { return r.nvic.Restore(state) }

// VTORRegister adapts an NVIC's VTOR field to the 4-byte window at
// 0xE000ED08.
type VTORRegister struct {
	bus.NoTick
	nvic *NVIC
}

// NewVTORRegister wraps nvic for the VTOR register window.
func NewVTORRegister(nvic *NVIC) *VTORRegister {
	return &VTORRegister{nvic: nvic}
}

func (v *VTORRegister) Read(offset uint32) (uint8, bool) {
	if offset >= 4 {
		return 0, false
	}
	return byte(v.nvic.VTOR() >> (8 * offset)), true
}

func (v *VTORRegister) Write(offset uint32, value uint8) bool {
	if offset >= 4 {
		return false
	}
	shift := 8 * offset
	next := (v.nvic.VTOR() &^ (0xFF << shift)) | (uint32(value) << shift)
	v.nvic.SetVTOR(next)
	return true
}

func (v *VTORRegister) Snapshot() interface{}             { return v.nvic.VTOR() }
func (v *VTORRegister) Restore(state interface{}) error {
	val, ok := state.(uint32)
	if !ok {
		return errForeignState
	}
	v.nvic.SetVTOR(val)
	return nil
}
