package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/w1ne/labwired/core/config"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadChipDescriptorValidatesCleanly(t *testing.T) {
	path := writeFile(t, `
schema_version: "1.0"
name: nucleo-like
arch: cortex-m4
flash:
  base: 0x0
  size: 256KB
ram:
  base: 0x20000000
  size: 64KB
peripherals:
  - id: uart1
    type: uart
    base_address: 0x40013800
    size: "16"
`)
	chip, err := config.LoadChipDescriptor(path)
	if err != nil {
		t.Fatalf("LoadChipDescriptor: %v", err)
	}
	if err := chip.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if arch, err := config.ResolveArch(chip.Arch); err != nil || arch != config.ArchARM {
		t.Fatalf("expected arch to resolve to ArchARM, got %v, err=%v", arch, err)
	}
}

func TestValidateRejectsOverlappingPeripheralWindows(t *testing.T) {
	path := writeFile(t, `
schema_version: "1.0"
name: overlap-chip
arch: riscv32
flash:
  base: 0x0
  size: 64KB
ram:
  base: 0x20000000
  size: 16KB
peripherals:
  - id: uart1
    type: uart
    base_address: 0x40000000
    size: "16"
  - id: uart2
    type: uart
    base_address: 0x40000008
    size: "16"
`)
	chip, err := config.LoadChipDescriptor(path)
	if err != nil {
		t.Fatalf("LoadChipDescriptor: %v", err)
	}
	if err := chip.Validate(); err == nil {
		t.Fatalf("expected an overlap error between uart1 and uart2")
	}
}

func TestResolveArchRejectsUnknownSpelling(t *testing.T) {
	if _, err := config.ResolveArch("z80"); err == nil {
		t.Fatalf("expected an error for an unsupported architecture")
	}
}
