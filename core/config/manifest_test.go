package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/w1ne/labwired/core/config"
)

func TestLoadSystemManifestResolvesChipRelativeToManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "board.yaml")
	contents := `
schema_version: "1.0"
name: test-board
chip: chips/nucleo.yaml
board_io:
  - id: led1
    kind: led
    peripheral: gpio_a
    pin: 5
    signal: output
  - id: button1
    kind: button
    peripheral: gpio_c
    pin: 13
    signal: input
    active_high: false
external_devices:
  - id: sensor1
    type: generic_i2c
    connection: pa5
`
	if err := os.WriteFile(manifestPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := config.LoadSystemManifest(manifestPath)
	if err != nil {
		t.Fatalf("LoadSystemManifest: %v", err)
	}

	want := filepath.Join(dir, "chips", "nucleo.yaml")
	if got := m.ResolvedChipPath(); got != want {
		t.Fatalf("ResolvedChipPath() = %q, want %q", got, want)
	}

	if len(m.BoardIO) != 2 {
		t.Fatalf("expected 2 board io bindings, got %d", len(m.BoardIO))
	}
	if !m.BoardIO[0].IsActiveHigh() {
		t.Fatalf("expected led1 to default to active_high=true")
	}
	if m.BoardIO[1].IsActiveHigh() {
		t.Fatalf("expected button1's explicit active_high=false to be honored")
	}

	if len(m.ExternalDevices) != 1 || !m.ExternalDevices[0].IsPinConnection() {
		t.Fatalf("expected sensor1 to be recognised as a pin connection")
	}
}
