package config

import (
	"fmt"
	"os"

	"github.com/w1ne/labwired/internal/errors"
	"gopkg.in/yaml.v3"
)

// TestInputs names the firmware (and optional system manifest) a test
// script exercises.
type TestInputs struct {
	Firmware string `yaml:"firmware" json:"firmware"`
	System   string `yaml:"system,omitempty" json:"system,omitempty"`
}

// TestLimits is the five-way deterministic stop-condition budget —
// max_steps, max_cycles, max_uart_bytes, no_progress_steps, wall_time_ms —
// plus max_vcd_bytes, carried even though VCD tracing itself is out of
// scope here, so a script written for a tool that does trace VCD still
// loads without a schema error.
type TestLimits struct {
	MaxSteps        uint64  `yaml:"max_steps" json:"max_steps"`
	MaxCycles       *uint64 `yaml:"max_cycles,omitempty" json:"max_cycles,omitempty"`
	MaxUartBytes    *uint64 `yaml:"max_uart_bytes,omitempty" json:"max_uart_bytes,omitempty"`
	NoProgressSteps *uint64 `yaml:"no_progress_steps,omitempty" json:"no_progress_steps,omitempty"`
	WallTimeMs      *uint64 `yaml:"wall_time_ms,omitempty" json:"wall_time_ms,omitempty"`
	MaxVcdBytes     *uint64 `yaml:"max_vcd_bytes,omitempty" json:"max_vcd_bytes,omitempty"`
}

// StopReason is the stable stop-reason vocabulary test scripts assert
// against.
type StopReason string

const (
	StopReasonConfigError     StopReason = "config_error"
	StopReasonMaxSteps        StopReason = "max_steps"
	StopReasonMaxCycles       StopReason = "max_cycles"
	StopReasonMaxUartBytes    StopReason = "max_uart_bytes"
	StopReasonMaxVcdBytes     StopReason = "max_vcd_bytes"
	StopReasonNoProgress      StopReason = "no_progress"
	StopReasonWallTime        StopReason = "wall_time"
	StopReasonMemoryViolation StopReason = "memory_violation"
	StopReasonDecodeError     StopReason = "decode_error"
	StopReasonHalt            StopReason = "halt"
)

// Assertion is one test-script assertion. Exactly one of its fields is
// populated, matching original_source's untagged TestAssertion enum —
// Go has no untagged-enum equivalent, so the YAML is decoded into every
// field and Kind() reports which one was actually present.
type Assertion struct {
	UartContains       *string             `yaml:"uart_contains,omitempty" json:"uart_contains,omitempty"`
	UartRegex          *string             `yaml:"uart_regex,omitempty" json:"uart_regex,omitempty"`
	ExpectedStopReason *StopReason         `yaml:"expected_stop_reason,omitempty" json:"expected_stop_reason,omitempty"`
	MemoryValue        *MemoryValueDetails `yaml:"memory_value,omitempty" json:"memory_value,omitempty"`
}

// MemoryValueDetails asserts that a guest memory location holds (or, with
// Mask set, matches under a bitmask) an expected value at the end of a
// run.
type MemoryValueDetails struct {
	Address       uint64  `yaml:"address" json:"address"`
	ExpectedValue uint64  `yaml:"expected_value" json:"expected_value"`
	Mask          *uint64 `yaml:"mask,omitempty" json:"mask,omitempty"`
}

// AssertionKind enumerates which concrete assertion a parsed Assertion
// holds.
type AssertionKind int

const (
	AssertionUnknown AssertionKind = iota
	AssertionUartContains
	AssertionUartRegex
	AssertionExpectedStopReason
	AssertionMemoryValue
)

// Kind reports which of Assertion's fields was actually populated.
func (a Assertion) Kind() AssertionKind {
	switch {
	case a.UartContains != nil:
		return AssertionUartContains
	case a.UartRegex != nil:
		return AssertionUartRegex
	case a.ExpectedStopReason != nil:
		return AssertionExpectedStopReason
	case a.MemoryValue != nil:
		return AssertionMemoryValue
	}
	return AssertionUnknown
}

// TestScript is the parsed, schema-1.0 form of a test script.
type TestScript struct {
	SchemaVersion string      `yaml:"schema_version"`
	Inputs        TestInputs  `yaml:"inputs"`
	Limits        TestLimits  `yaml:"limits"`
	Assertions    []Assertion `yaml:"assertions,omitempty"`
}

// Validate checks the schema_version, firmware path, and max_steps
// constraints a well-formed test script must satisfy.
func (s *TestScript) Validate() error {
	if s.SchemaVersion != "1.0" {
		return errors.Errorf(errors.ConfigError, fmt.Sprintf("unsupported test script schema_version %q (supported: \"1.0\")", s.SchemaVersion))
	}
	if s.Inputs.Firmware == "" {
		return errors.Errorf(errors.ConfigError, "test script inputs.firmware cannot be empty")
	}
	if s.Limits.MaxSteps == 0 {
		return errors.Errorf(errors.ConfigError, "test script limits.max_steps must be greater than zero")
	}
	const maxAllowedSteps = 50_000_000
	if s.Limits.MaxSteps > maxAllowedSteps {
		return errors.Errorf(errors.ConfigError, fmt.Sprintf("test script limits.max_steps %d exceeds the maximum of %d", s.Limits.MaxSteps, maxAllowedSteps))
	}
	return nil
}

// legacyTestScriptV1 is the deprecated flat layout: schema_version: 1,
// with max_steps and firmware/system at the top level instead of nested
// under inputs/limits.
type legacyTestScriptV1 struct {
	SchemaVersion interface{} `yaml:"schema_version"`
	Firmware      string      `yaml:"firmware"`
	System        string      `yaml:"system,omitempty"`
	MaxSteps      uint64      `yaml:"max_steps"`
	WallTimeMs    *uint64     `yaml:"wall_time_ms,omitempty"`
	Assertions    []Assertion `yaml:"assertions,omitempty"`
}

func isLegacyV1(v interface{}) bool {
	switch t := v.(type) {
	case int:
		return t == 1
	case int64:
		return t == 1
	case uint64:
		return t == 1
	case string:
		return t == "1"
	}
	return false
}

// normalize converts a legacy v1 document, with its deprecated flat
// layout, into a TestScript.
func (l legacyTestScriptV1) normalize() *TestScript {
	return &TestScript{
		SchemaVersion: "1.0",
		Inputs:        TestInputs{Firmware: l.Firmware, System: l.System},
		Limits:        TestLimits{MaxSteps: l.MaxSteps, WallTimeMs: l.WallTimeMs},
		Assertions:    l.Assertions,
	}
}

// LoadTestScript reads a test script from path, accepting either the
// 1.0 schema (inputs/limits/assertions) or the deprecated legacy v1 flat
// layout, normalizing the latter into a TestScript.
func LoadTestScript(path string) (*TestScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("reading test script %s: %s", path, err))
	}

	var script TestScript
	if err := yaml.Unmarshal(data, &script); err == nil && script.SchemaVersion == "1.0" {
		if err := script.Validate(); err != nil {
			return nil, err
		}
		return &script, nil
	}

	var legacy legacyTestScriptV1
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("parsing test script %s: %s", path, err))
	}
	if !isLegacyV1(legacy.SchemaVersion) {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("unsupported test script schema_version in %s (expected \"1.0\" or legacy 1)", path))
	}
	normalized := legacy.normalize()
	if err := normalized.Validate(); err != nil {
		return nil, err
	}
	return normalized, nil
}
