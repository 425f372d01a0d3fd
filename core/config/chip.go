// Package config loads the YAML-described external interfaces: chip
// descriptors, system manifests, and test scripts. None of this parsing
// logic lives in the CPU/bus/peripheral core itself — that core only
// consumes already-typed values — but a runnable system needs something to
// produce those typed inputs from a file on disk.
//
// Grounded on original_source/crates/config/src/lib.rs for field shape
// and the legacy-v1/1.0 test-script duality, parsed here with
// gopkg.in/yaml.v3 rather than hand-written parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/w1ne/labwired/internal/errors"
	"gopkg.in/yaml.v3"
)

// Arch identifies which CPU interpreter a chip descriptor targets.
type Arch string

const (
	ArchARM   Arch = "arm"
	ArchRISCV Arch = "riscv"
)

// archAliases maps every accepted spelling a chip descriptor can use to
// its canonical Arch value.
var archAliases = map[string]Arch{
	"arm":        ArchARM,
	"cortex-m3":  ArchARM,
	"cortex-m4":  ArchARM,
	"cortex-m7":  ArchARM,
	"riscv":      ArchRISCV,
	"riscv32":    ArchRISCV,
	"rv32i":      ArchRISCV,
	"rv32imac":   ArchRISCV,
}

// ResolveArch normalizes one of the accepted arch spellings to its
// canonical value, or reports an error for anything else.
func ResolveArch(s string) (Arch, error) {
	if a, ok := archAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return a, nil
	}
	return "", errors.Errorf(errors.ConfigError, fmt.Sprintf("unknown arch %q", s))
}

// MemoryRange is a base address plus a human-size-string size, as used
// for both the flash and RAM entries of a chip descriptor.
type MemoryRange struct {
	Base uint64 `yaml:"base"`
	Size string `yaml:"size"`
}

// SizeBytes parses Size ("128KB", "1MB", a bare byte count) into a byte
// count.
func (m MemoryRange) SizeBytes() (uint64, error) {
	return ParseSize(m.Size)
}

// PeripheralConfig describes one peripheral entry on the chip's bus.
type PeripheralConfig struct {
	ID          string                 `yaml:"id"`
	Type        string                 `yaml:"type"`
	BaseAddress uint64                 `yaml:"base_address"`
	Size        *string                `yaml:"size,omitempty"`
	IRQ         *uint32                `yaml:"irq,omitempty"`
	Config      map[string]interface{} `yaml:"config,omitempty"`
}

// SizeBytes resolves this peripheral's declared window size, defaulting
// to 4 bytes (a single register) when size is omitted.
func (p PeripheralConfig) SizeBytes() (uint64, error) {
	if p.Size == nil {
		return 4, nil
	}
	return ParseSize(*p.Size)
}

// ChipDescriptor is the parsed form of a chip descriptor YAML document.
type ChipDescriptor struct {
	SchemaVersion string             `yaml:"schema_version"`
	Name          string             `yaml:"name"`
	Arch          string             `yaml:"arch"`
	Flash         MemoryRange        `yaml:"flash"`
	RAM           MemoryRange        `yaml:"ram"`
	Peripherals   []PeripheralConfig `yaml:"peripherals"`
}

// LoadChipDescriptor reads and parses a chip descriptor from path.
func LoadChipDescriptor(path string) (*ChipDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("reading chip descriptor %s: %s", path, err))
	}
	var c ChipDescriptor
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("parsing chip descriptor %s: %s", path, err))
	}
	if c.SchemaVersion == "" {
		c.SchemaVersion = "1.0"
	}
	return &c, nil
}

// Validate checks that this descriptor's peripheral windows are
// non-overlapping and that each falls outside the flash/RAM ranges. The bus
// itself trusts its entry list to already be non-overlapping, so this
// ingestion-time check is what actually enforces that precondition rather
// than leaving it as an unchecked caller contract.
func (c *ChipDescriptor) Validate() error {
	if c.SchemaVersion != "1.0" {
		return errors.Errorf(errors.ConfigError, fmt.Sprintf("unsupported chip descriptor schema_version %q (supported: \"1.0\")", c.SchemaVersion))
	}
	if _, err := ResolveArch(c.Arch); err != nil {
		return err
	}
	flashSize, err := c.Flash.SizeBytes()
	if err != nil {
		return err
	}
	ramSize, err := c.RAM.SizeBytes()
	if err != nil {
		return err
	}

	type window struct {
		name       string
		base, size uint64
	}
	windows := []window{
		{"flash", c.Flash.Base, flashSize},
		{"ram", c.RAM.Base, ramSize},
	}
	for _, p := range c.Peripherals {
		size, err := p.SizeBytes()
		if err != nil {
			return err
		}
		windows = append(windows, window{p.ID, p.BaseAddress, size})
	}

	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			a, b := windows[i], windows[j]
			if a.base < b.base+b.size && b.base < a.base+a.size {
				return errors.Errorf(errors.ConfigError, fmt.Sprintf(
					"peripheral window %q (%#x..%#x) overlaps %q (%#x..%#x)",
					a.name, a.base, a.base+a.size, b.name, b.base, b.base+b.size))
			}
		}
	}
	return nil
}
