// Package image loads the firmware input: an ELF32 executable for
// little-endian ARM (machine 40) or RISC-V (machine 243), extracting its
// loadable segments and entry point. This is the one ambient concern built
// on the standard library rather than a corpus dependency — no example
// repo parses ELF, and debug/elf is the ecosystem's de facto standard for
// it (see DESIGN.md).
package image

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/w1ne/labwired/internal/errors"
)

// Segment is a single loadable program header, reduced to the pair
// load_firmware needs: where in guest memory it goes, and the bytes that
// belong there. BSS-only tail bytes (Memsz > Filesz) are zero-filled,
// since flash/RAM regions are already zero-initialized on construction.
type Segment struct {
	Address uint32
	Bytes   []byte
}

// Image is a loaded firmware binary: its entry point and every loadable
// segment, in program-header order.
type Image struct {
	EntryPoint uint32
	Segments   []Segment
}

// Load parses an ELF32 little-endian file from r, verifying it targets
// ARM or RISC-V, and returns every PT_LOAD segment's (address, bytes) pair
// plus the entry point. Non-loadable segments (PT_NOTE, PT_DYNAMIC, etc.)
// are ignored.
func Load(r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("not a valid ELF file: %s", err))
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("only ELF32 firmware is supported, got %s", f.Class))
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("only little-endian firmware is supported, got %s", f.Data))
	}
	switch f.Machine {
	case elf.EM_ARM, elf.EM_RISCV:
	default:
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("unsupported ELF machine %s (expected ARM or RISC-V)", f.Machine))
	}

	img := &Image{EntryPoint: uint32(f.Entry)}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Memsz)
		n, err := prog.ReadAt(data[:prog.Filesz], 0)
		if err != nil && err != io.EOF {
			return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("reading PT_LOAD segment at %#x: %s", prog.Vaddr, err))
		}
		if uint64(n) != prog.Filesz {
			return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("short read for PT_LOAD segment at %#x", prog.Vaddr))
		}
		img.Segments = append(img.Segments, Segment{
			Address: uint32(prog.Paddr),
			Bytes:   data,
		})
	}
	return img, nil
}
