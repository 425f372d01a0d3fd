package result_test

import (
	"encoding/json"
	"testing"

	"github.com/w1ne/labwired/core/config"
	"github.com/w1ne/labwired/core/result"
)

func TestSnapshotSerializeRoundTripIsStable(t *testing.T) {
	irq := uint32(30)
	snap := result.NewInteractiveSnapshot(
		result.StatusPass,
		result.CpuSnapshot{
			Arch:      config.ArchARM,
			Registers: []uint32{1, 2, 3},
			Special:   map[string]uint32{"xpsr": 0x01000000},
		},
		[]result.PeripheralSnapshot{
			{Name: "uart1", Base: 0x4000_C000, Size: 0x400, IRQ: &irq},
		},
		100, 100, 100,
		config.StopReasonMaxSteps,
		"",
		result.FirmwareHash([]byte("firmware bytes")),
		result.InteractiveSnapshotConfig{Firmware: "fw.elf", MaxSteps: 1000},
	)

	first, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored result.Snapshot
	if err := json.Unmarshal(first, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second, err := json.Marshal(restored)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}

	if string(first) != string(second) {
		t.Fatalf("snapshot did not round-trip:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestFirmwareHashIsDeterministic(t *testing.T) {
	a := result.FirmwareHash([]byte("same bytes"))
	b := result.FirmwareHash([]byte("same bytes"))
	if a != b {
		t.Fatalf("expected identical hashes, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected a 64-character hex SHA-256 digest, got %d chars", len(a))
	}
}
