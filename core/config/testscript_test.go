package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/w1ne/labwired/core/config"
)

func TestLoadTestScriptSchema10(t *testing.T) {
	path := writeFile(t, `
schema_version: "1.0"
inputs:
  firmware: blink.elf
limits:
  max_steps: 10000
  max_uart_bytes: 256
assertions:
  - uart_contains: "READY"
  - expected_stop_reason: max_steps
  - memory_value:
      address: 0x20000010
      expected_value: 42
`)
	script, err := config.LoadTestScript(path)
	if err != nil {
		t.Fatalf("LoadTestScript: %v", err)
	}
	if script.Inputs.Firmware != "blink.elf" {
		t.Fatalf("expected firmware blink.elf, got %q", script.Inputs.Firmware)
	}
	if len(script.Assertions) != 3 {
		t.Fatalf("expected 3 assertions, got %d", len(script.Assertions))
	}
	kinds := []config.AssertionKind{
		config.AssertionUartContains,
		config.AssertionExpectedStopReason,
		config.AssertionMemoryValue,
	}
	for i, want := range kinds {
		if got := script.Assertions[i].Kind(); got != want {
			t.Fatalf("assertion %d: Kind() = %v, want %v", i, got, want)
		}
	}
}

func TestLoadTestScriptLegacyV1Fallback(t *testing.T) {
	path := writeFile(t, `
schema_version: 1
firmware: legacy.elf
max_steps: 5000
`)
	script, err := config.LoadTestScript(path)
	if err != nil {
		t.Fatalf("LoadTestScript (legacy): %v", err)
	}
	if script.SchemaVersion != "1.0" {
		t.Fatalf("expected normalized schema_version 1.0, got %q", script.SchemaVersion)
	}
	if script.Inputs.Firmware != "legacy.elf" {
		t.Fatalf("expected firmware legacy.elf, got %q", script.Inputs.Firmware)
	}
	if script.Limits.MaxSteps != 5000 {
		t.Fatalf("expected max_steps 5000, got %d", script.Limits.MaxSteps)
	}
}

func TestTestScriptValidateRejectsZeroMaxSteps(t *testing.T) {
	s := config.TestScript{
		SchemaVersion: "1.0",
		Inputs:        config.TestInputs{Firmware: "x.elf"},
		Limits:        config.TestLimits{MaxSteps: 0},
	}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected an error for max_steps == 0")
	}
}

func TestLoadTestScriptRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.yaml")
	if err := os.WriteFile(path, []byte("not: [valid, yaml, :::"), 0o644); err != nil {
		t.Fatalf("write garbage file: %v", err)
	}
	if _, err := config.LoadTestScript(path); err == nil {
		t.Fatalf("expected an error loading malformed yaml")
	}
}
