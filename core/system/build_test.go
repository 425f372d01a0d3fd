package system_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/w1ne/labwired/core/config"
	"github.com/w1ne/labwired/core/instance"
	"github.com/w1ne/labwired/core/system"
)

const testChipYAML = `
schema_version: "1.0"
name: test-chip
arch: arm
flash:
  base: 0x0
  size: 1KB
ram:
  base: 0x20000000
  size: 1KB
peripherals:
  - id: uart1
    type: uart
    base_address: 0x40013800
    size: "16"
  - id: tim2
    type: timer
    base_address: 0x40000000
    size: "64"
    irq: 28
`

func loadTestChip(t *testing.T) *config.ChipDescriptor {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chip.yaml")
	if err := os.WriteFile(path, []byte(testChipYAML), 0o644); err != nil {
		t.Fatalf("write chip yaml: %v", err)
	}
	chip, err := config.LoadChipDescriptor(path)
	if err != nil {
		t.Fatalf("load chip: %v", err)
	}
	return chip
}

func TestBuildProducesARunnableMachine(t *testing.T) {
	chip := loadTestChip(t)

	m, err := system.Build(chip, instance.New(0))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Bus.Flash == nil || m.Bus.RAM == nil {
		t.Fatalf("expected flash and ram regions to be populated")
	}
	if len(m.Bus.Peripherals) != 2 {
		t.Fatalf("expected 2 peripheral entries, got %d", len(m.Bus.Peripherals))
	}
}

func TestBuildRejectsUnknownPeripheralType(t *testing.T) {
	chip := loadTestChip(t)
	chip.Peripherals = append(chip.Peripherals, config.PeripheralConfig{
		ID: "mystery", Type: "no_such_peripheral", BaseAddress: 0x5000_0000,
	})

	if _, err := system.Build(chip, instance.New(0)); err == nil {
		t.Fatalf("expected an error for an unknown peripheral type")
	}
}

func TestBuildRejectsOverlappingWindows(t *testing.T) {
	chip := loadTestChip(t)
	chip.Peripherals = append(chip.Peripherals, config.PeripheralConfig{
		ID: "clash", Type: "uart", BaseAddress: 0x40013800, Size: strPtr("16"),
	})

	if _, err := system.Build(chip, instance.New(0)); err == nil {
		t.Fatalf("expected an overlap error from chip.Validate")
	}
}

func strPtr(s string) *string { return &s }
