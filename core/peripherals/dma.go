package peripherals

import "github.com/w1ne/labwired/core/bus"

const dmaChannelCount = 7

const (
	dmaCCREN      = 1 << 0
	dmaCCRDIR     = 1 << 4 // 0 = read from peripheral, 1 = read from memory
	dmaCCRMEM2MEM = 1 << 14
)

// dmaChannel holds one DMA channel's CCR/CNDTR/CPAR/CMAR registers and its
// live transfer cursor.
type dmaChannel struct {
	ccr, cndtr, cpar, cmar uint32
	remaining              uint32
	cursor                 uint32 // next address offset already transferred, relative to cndtr's original value
	armed                  bool
}

// Dma models an STM32-style DMA1 controller with seven independent
// channels, each transferring one real byte per tick while armed: the
// direction bit selects which of CPAR/CMAR is source and which is
// destination, MEM2MEM mode copies CPAR-to-CMAR regardless of the
// direction bit, and on CNDTR reaching zero the channel disarms and
// latches its transfer-complete flag in ISR.
type Dma struct {
	isr      uint32 // global interrupt status register, 4 bits per channel
	channels [dmaChannelCount]dmaChannel
}

// NewDma creates a DMA controller with every channel disabled.
func NewDma() *Dma {
	return &Dma{}
}

// channelBase returns the register file base offset for 1-indexed channel
// ch, matching the real STM32 layout (20 bytes per channel starting at
// 0x08).
func channelBase(ch int) uint32 {
	return 0x08 + uint32(ch-1)*0x14
}

func (d *Dma) channelAt(offset uint32) (*dmaChannel, uint32, bool) {
	if offset < 0x08 {
		return nil, 0, false
	}
	idx := (offset - 0x08) / 0x14
	if int(idx) >= dmaChannelCount {
		return nil, 0, false
	}
	return &d.channels[idx], offset - channelBase(int(idx)+1), true
}

func (d *Dma) Read(offset uint32) (uint8, bool) {
	if offset < 4 {
		return byte(d.isr >> (8 * offset)), true
	}
	ch, rel, ok := d.channelAt(offset)
	if !ok {
		return 0, false
	}
	switch {
	case rel < 4:
		return byte(ch.ccr >> (8 * rel)), true
	case rel >= 4 && rel < 8:
		return byte(ch.cndtr >> (8 * (rel - 4))), true
	case rel >= 8 && rel < 12:
		return byte(ch.cpar >> (8 * (rel - 8))), true
	case rel >= 12 && rel < 16:
		return byte(ch.cmar >> (8 * (rel - 12))), true
	default:
		return 0, false
	}
}

func (d *Dma) Write(offset uint32, value uint8) bool {
	if offset < 4 {
		lane := offset
		// IFCR aliasing: writing this window also clears the
		// corresponding ISR bits (write-one-to-clear), matching the real
		// IFCR/ISR pairing closely enough for this simulator's scope.
		d.isr &^= uint32(value) << (8 * lane)
		return true
	}
	ch, rel, ok := d.channelAt(offset)
	if !ok {
		return false
	}
	switch {
	case rel < 4:
		lane := rel
		wasEnabled := ch.ccr&dmaCCREN != 0
		ch.ccr &^= 0xFF << (8 * lane)
		ch.ccr |= uint32(value) << (8 * lane)
		if !wasEnabled && ch.ccr&dmaCCREN != 0 {
			ch.remaining = ch.cndtr
			ch.cursor = 0
			ch.armed = ch.remaining > 0
		}
		if ch.ccr&dmaCCREN == 0 {
			ch.armed = false
		}
		return true
	case rel >= 4 && rel < 8:
		lane := rel - 4
		ch.cndtr &^= 0xFF << (8 * lane)
		ch.cndtr |= uint32(value) << (8 * lane)
		return true
	case rel >= 8 && rel < 12:
		lane := rel - 8
		ch.cpar &^= 0xFF << (8 * lane)
		ch.cpar |= uint32(value) << (8 * lane)
		return true
	case rel >= 12 && rel < 16:
		lane := rel - 12
		ch.cmar &^= 0xFF << (8 * lane)
		ch.cmar |= uint32(value) << (8 * lane)
		return true
	default:
		return false
	}
}

// Tick advances every armed channel by one byte transfer. Each armed
// channel issues a single bus.Copy request naming its current source and
// destination offsets; the system bus reads the source byte and writes it
// to the destination within that one request, so the transferred byte is
// the real value at the source address rather than a placeholder. MEM2MEM
// channels always copy CPAR (source) to CMAR (destination) regardless of
// the direction bit; direction-only channels use the bit to pick which
// register is source and which is destination.
func (d *Dma) Tick() bus.TickResult {
	var result bus.TickResult
	for i := range d.channels {
		ch := &d.channels[i]
		if !ch.armed {
			continue
		}

		var src, dest uint32
		switch {
		case ch.ccr&dmaCCRMEM2MEM != 0:
			src, dest = ch.cpar+ch.cursor, ch.cmar+ch.cursor
		case ch.ccr&dmaCCRDIR != 0: // read from memory, write to peripheral
			src, dest = ch.cmar+ch.cursor, ch.cpar+ch.cursor
		default: // read from peripheral, write to memory
			src, dest = ch.cpar+ch.cursor, ch.cmar+ch.cursor
		}
		result.DMARequests = append(result.DMARequests, bus.DMARequest{
			Address:     src,
			DestAddress: dest,
			Direction:   bus.Copy,
		})

		ch.cursor++
		ch.remaining--
		if ch.remaining == 0 {
			ch.armed = false
			ch.ccr &^= dmaCCREN
			d.isr |= 1 << uint32(i*4+1) // TCIFx: transfer-complete flag
		}
	}
	return result
}

type dmaState struct {
	ISR      uint32
	Channels [dmaChannelCount]dmaChannel
}

func (d *Dma) Snapshot() interface{} {
	return dmaState{ISR: d.isr, Channels: d.channels}
}

func (d *Dma) Restore(state interface{}) error {
	s, ok := state.(dmaState)
	if !ok {
		return errForeignState
	}
	d.isr = s.ISR
	d.channels = s.Channels
	return nil
}
