// Package systembus implements the concrete system bus: the owner of flash,
// RAM, an ordered peripheral entry list, and the optional shared NVIC. It is
// the byte-addressable routing layer the CPU interpreters fetch and
// load/store through.
//
// Grounded on original_source/crates/core/src/bus/mod.rs (SystemBus::new,
// read_u8/write_u8 routing order, tick_peripherals_with_costs' three-phase
// tick/DMA/IRQ-scan structure) and on the hardware/memory/bus package's
// shape for a Go routing layer with a debugger escape hatch.
package systembus

import (
	"github.com/w1ne/labwired/core/bus"
	"github.com/w1ne/labwired/core/memory"
	"github.com/w1ne/labwired/core/peripherals"
	"github.com/w1ne/labwired/internal/errors"
)

// SystemBus owns guest RAM, guest flash, and every peripheral entry,
// ticking them in insertion order and aggregating the IRQs and DMA
// requests they produce.
type SystemBus struct {
	Flash       *memory.Region
	RAM         *memory.Region
	Peripherals []bus.Entry
	NVIC        NVICLike
}

// NVICLike is the subset of peripherals.NVIC the bus needs. The bus holds
// the NVIC through this interface rather than the concrete type, so any
// value with these two methods can stand in for it.
type NVICLike interface {
	SignalIRQ(irq uint32)
	DispatchableIRQs() []uint32
}

// New creates an empty SystemBus with no flash, no RAM and no
// peripherals; callers (core/system) populate Flash/RAM/Peripherals/NVIC
// directly after construction.
func New() *SystemBus {
	return &SystemBus{}
}

// ReadByte routes a read to RAM, then flash, then the peripheral entries in
// insertion order: RAM is probed first to keep stack/heap accesses — the
// hottest path — cheapest. A MemoryViolation is reported when nothing
// claims the address, since every access is expected to land in exactly
// one region.
func (b *SystemBus) ReadByte(address uint32) (uint8, error) {
	if b.RAM != nil {
		if v, ok := b.RAM.ReadByte(address); ok {
			return v, nil
		}
	}
	if b.Flash != nil {
		if v, ok := b.Flash.ReadByte(address); ok {
			return v, nil
		}
	}
	for i := range b.Peripherals {
		e := &b.Peripherals[i]
		if e.Contains(address) {
			v, ok := e.Dev.Read(address - e.Base)
			if !ok {
				return 0, errors.Errorf(errors.MemoryViolation, address)
			}
			return v, nil
		}
	}
	return 0, errors.Errorf(errors.MemoryViolation, address)
}

// WriteByte routes a write the same way ReadByte routes a read.
func (b *SystemBus) WriteByte(address uint32, value uint8) error {
	if b.RAM != nil {
		if ok := b.RAM.WriteByte(address, value); ok {
			return nil
		}
	}
	if b.Flash != nil {
		if ok := b.Flash.WriteByte(address, value); ok {
			return nil
		}
	}
	for i := range b.Peripherals {
		e := &b.Peripherals[i]
		if e.Contains(address) {
			if ok := e.Dev.Write(address-e.Base, value); ok {
				return nil
			}
			return errors.Errorf(errors.MemoryViolation, address)
		}
	}
	return errors.Errorf(errors.MemoryViolation, address)
}

// ReadWord reads a little-endian 32-bit value by decomposing it into four
// byte accesses, matching how Cortex-M/RISC-V buses expose unaligned
// multi-byte transfers as a sequence of byte-granular ones.
func (b *SystemBus) ReadWord(address uint32) (uint32, error) {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		byteVal, err := b.ReadByte(address + i)
		if err != nil {
			return 0, err
		}
		v |= uint32(byteVal) << (8 * i)
	}
	return v, nil
}

// WriteWord writes a little-endian 32-bit value as four byte accesses.
func (b *SystemBus) WriteWord(address uint32, value uint32) error {
	for i := uint32(0); i < 4; i++ {
		if err := b.WriteByte(address+i, byte(value>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

// ReadHalfWord reads a little-endian 16-bit value as two byte accesses.
func (b *SystemBus) ReadHalfWord(address uint32) (uint16, error) {
	var v uint16
	for i := uint32(0); i < 2; i++ {
		byteVal, err := b.ReadByte(address + i)
		if err != nil {
			return 0, err
		}
		v |= uint16(byteVal) << (8 * i)
	}
	return v, nil
}

// WriteHalfWord writes a little-endian 16-bit value as two byte accesses.
func (b *SystemBus) WriteHalfWord(address uint32, value uint16) error {
	for i := uint32(0); i < 2; i++ {
		if err := b.WriteByte(address+i, byte(value>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

// TickPeripherals ticks every peripheral entry in insertion order,
// aggregates implicit/explicit IRQs (pending external ones into NVIC when
// present, otherwise returning them directly), fulfills every DMA request
// in order, then — when NVIC is present — appends its currently
// dispatchable IRQ numbers: a three-phase tick → DMA fulfillment → IRQ
// aggregation ordering, so a DMA transfer started this tick is visible to
// the next instruction and any IRQ it raises is aggregated after the copy
// has actually happened.
func (b *SystemBus) TickPeripherals() ([]uint32, error) {
	var directIRQs []uint32
	var dmaRequests []bus.DMARequest

	for i := range b.Peripherals {
		e := &b.Peripherals[i]
		result := e.Dev.Tick()

		if len(result.DMARequests) > 0 {
			dmaRequests = append(dmaRequests, result.DMARequests...)
		}

		if result.IRQSet && e.IRQ != nil {
			directIRQs = b.pendOrCollect(*e.IRQ, directIRQs)
		}
		for _, irq := range result.ExplicitIRQs {
			directIRQs = b.pendOrCollect(irq, directIRQs)
		}
	}

	for _, req := range dmaRequests {
		switch req.Direction {
		case bus.Write:
			if err := b.WriteByte(req.Address, req.Value); err != nil {
				return nil, err
			}
		case bus.Copy:
			v, err := b.ReadByte(req.Address)
			if err != nil {
				return nil, err
			}
			if err := b.WriteByte(req.DestAddress, v); err != nil {
				return nil, err
			}
		}
	}

	if b.NVIC != nil {
		directIRQs = append(directIRQs, b.NVIC.DispatchableIRQs()...)
	}
	return directIRQs, nil
}

// pendOrCollect pends irq into NVIC (when present and irq >= 16, an
// external interrupt) or, for core exceptions (irq < 16) or when no NVIC
// is configured, appends it directly to the collected slice.
func (b *SystemBus) pendOrCollect(irq uint32, collected []uint32) []uint32 {
	if irq >= 16 && b.NVIC != nil {
		b.NVIC.SignalIRQ(irq)
		return collected
	}
	return append(collected, irq)
}

// AttachUARTSink installs sink into every UART-typed peripheral on the bus.
// Peripherals opt into this privileged access by implementing
// bus.Downcastable and accepting a **peripherals.Uart target, which only
// peripherals.Uart itself does.
func (b *SystemBus) AttachUARTSink(sink *bus.Sink) {
	for i := range b.Peripherals {
		dc, ok := b.Peripherals[i].Dev.(bus.Downcastable)
		if !ok {
			continue
		}
		var uart *peripherals.Uart
		if dc.As(&uart) {
			uart.SetSink(sink)
		}
	}
}
