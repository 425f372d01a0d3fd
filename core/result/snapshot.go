package result

import "github.com/w1ne/labwired/core/config"

// SnapshotKind discriminates the tagged Snapshot variants.
type SnapshotKind string

const (
	SnapshotStandard    SnapshotKind = "standard"
	SnapshotConfigError SnapshotKind = "config_error"
	SnapshotInteractive SnapshotKind = "interactive"
)

// CpuSnapshot carries one architecture's register file, discriminated by
// Arch so a reader knows which of Registers/Special applies.
type CpuSnapshot struct {
	Arch     config.Arch `json:"arch"`
	Registers []uint32   `json:"registers"`
	Special   map[string]uint32 `json:"special,omitempty"`
}

// PeripheralSnapshot names one bus entry and, when available, its opaque
// internal state.
type PeripheralSnapshot struct {
	Name  string      `json:"name"`
	Base  uint32      `json:"base"`
	Size  uint32      `json:"size"`
	IRQ   *uint32     `json:"irq,omitempty"`
	State interface{} `json:"state,omitempty"`
}

// InteractiveSnapshotConfig records what produced an interactive
// snapshot, for `machine load` to resume from.
type InteractiveSnapshotConfig struct {
	Firmware string `json:"firmware"`
	System   string `json:"system,omitempty"`
	MaxSteps uint64 `json:"max_steps"`
}

// Snapshot is the tagged-JSON snapshot document. Exactly the fields
// relevant to Kind are populated; Go has no tagged-union type, so (like
// config.Assertion) every variant's fields live on one struct.
type Snapshot struct {
	Type SnapshotKind `json:"type"`

	// Standard
	CPU               *CpuSnapshot       `json:"cpu,omitempty"`
	StepsExecuted     uint64             `json:"steps_executed,omitempty"`
	Cycles            uint64             `json:"cycles,omitempty"`
	Instructions      uint64             `json:"instructions,omitempty"`
	StopReason        config.StopReason  `json:"stop_reason,omitempty"`
	StopReasonDetails *StopReasonDetails `json:"stop_reason_details,omitempty"`
	Limits            *config.TestLimits `json:"limits,omitempty"`
	FirmwareHash      string             `json:"firmware_hash,omitempty"`
	Config            *TestConfig        `json:"config,omitempty"`

	// ConfigError
	Message string `json:"message,omitempty"`

	// Interactive
	SnapshotSchemaVersion string                `json:"snapshot_schema_version,omitempty"`
	Status                Status                `json:"status,omitempty"`
	Peripherals           []PeripheralSnapshot  `json:"peripherals,omitempty"`
	InteractiveConfig     *InteractiveSnapshotConfig `json:"interactive_config,omitempty"`
}

// NewStandardSnapshot builds the "standard" snapshot variant emitted
// alongside a completed test run's Result.
func NewStandardSnapshot(cpu CpuSnapshot, r Result) Snapshot {
	return Snapshot{
		Type:              SnapshotStandard,
		CPU:               &cpu,
		StepsExecuted:     r.StepsExecuted,
		Cycles:            r.Cycles,
		Instructions:      r.Instructions,
		StopReason:        r.StopReason,
		StopReasonDetails: &r.StopReasonDetails,
		Limits:            &r.Limits,
		FirmwareHash:      r.FirmwareHash,
		Config:            &r.Config,
	}
}

// NewConfigErrorSnapshot builds the "config_error" variant emitted when a
// run never got far enough to produce a Result.
func NewConfigErrorSnapshot(message string, details StopReasonDetails, limits config.TestLimits, cfg TestConfig) Snapshot {
	return Snapshot{
		Type:              SnapshotConfigError,
		Message:           message,
		StopReasonDetails: &details,
		Limits:            &limits,
		Config:            &cfg,
	}
}

// NewInteractiveSnapshot builds the "interactive" variant a debug
// session's `machine load` command resumes from.
func NewInteractiveSnapshot(status Status, cpu CpuSnapshot, peripherals []PeripheralSnapshot, stepsExecuted, cycles, instructions uint64, stopReason config.StopReason, message, firmwareHash string, cfg InteractiveSnapshotConfig) Snapshot {
	return Snapshot{
		Type:                  SnapshotInteractive,
		SnapshotSchemaVersion: "1.0",
		Status:                status,
		CPU:                   &cpu,
		Peripherals:           peripherals,
		StepsExecuted:         stepsExecuted,
		Cycles:                cycles,
		Instructions:          instructions,
		StopReason:            stopReason,
		Message:               message,
		FirmwareHash:          firmwareHash,
		InteractiveConfig:     &cfg,
	}
}
