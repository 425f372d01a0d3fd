package image_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/w1ne/labwired/core/image"
)

// buildMinimalELF32 hand-assembles the smallest valid ELF32 file with a
// single PT_LOAD segment: a 52-byte ELF header immediately followed by
// one 32-byte Elf32_Phdr, then the segment's raw bytes. No sections are
// present (e_shnum=0), which debug/elf accepts.
func buildMinimalELF32(t *testing.T, machine uint16, vaddr, entry uint32, segment []byte) []byte {
	t.Helper()
	const ehsize = 52
	const phentsize = 32

	var buf bytes.Buffer

	ident := [16]byte{0x7f, 'E', 'L', 'F', 1 /* ELFCLASS32 */, 1 /* ELFDATA2LSB */, 1 /* EV_CURRENT */, 0}
	buf.Write(ident[:])

	le := binary.LittleEndian
	write16 := func(v uint16) { var b [2]byte; le.PutUint16(b[:], v); buf.Write(b[:]) }
	write32 := func(v uint32) { var b [4]byte; le.PutUint32(b[:], v); buf.Write(b[:]) }

	write16(2)       // e_type = ET_EXEC
	write16(machine)  // e_machine
	write32(1)        // e_version
	write32(entry)    // e_entry
	write32(ehsize)   // e_phoff
	write32(0)        // e_shoff
	write32(0)        // e_flags
	write16(ehsize)   // e_ehsize
	write16(phentsize) // e_phentsize
	write16(1)        // e_phnum
	write16(0)        // e_shentsize
	write16(0)        // e_shnum
	write16(0)        // e_shstrndx

	segOffset := uint32(ehsize + phentsize)
	write32(1)                  // p_type = PT_LOAD
	write32(segOffset)          // p_offset
	write32(vaddr)              // p_vaddr
	write32(vaddr)              // p_paddr
	write32(uint32(len(segment))) // p_filesz
	write32(uint32(len(segment))) // p_memsz
	write32(5)                  // p_flags = PF_R|PF_X
	write32(4)                  // p_align

	buf.Write(segment)
	return buf.Bytes()
}

func TestLoadParsesEntryPointAndSegments(t *testing.T) {
	const emARM = 40
	segment := []byte{0x00, 0x10, 0x00, 0x20, 0x09, 0x00, 0x00, 0x00}

	raw := buildMinimalELF32(t, emARM, 0x0, 0x8, segment)

	img, err := image.Load(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.EntryPoint != 0x8 {
		t.Fatalf("EntryPoint = %#x, want 0x8", img.EntryPoint)
	}
	if len(img.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(img.Segments))
	}
	if img.Segments[0].Address != 0x0 {
		t.Fatalf("segment address = %#x, want 0x0", img.Segments[0].Address)
	}
	if !bytes.Equal(img.Segments[0].Bytes, segment) {
		t.Fatalf("segment bytes = %v, want %v", img.Segments[0].Bytes, segment)
	}
}

func TestLoadRejectsWrongMachine(t *testing.T) {
	const emX86_64 = 62
	raw := buildMinimalELF32(t, emX86_64, 0x0, 0x0, []byte{0x01})

	if _, err := image.Load(bytes.NewReader(raw)); err == nil {
		t.Fatalf("expected an error loading a non-ARM/RISC-V ELF")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := image.Load(bytes.NewReader([]byte("not an elf file"))); err == nil {
		t.Fatalf("expected an error loading a non-ELF file")
	}
}
