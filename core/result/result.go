// Package result implements the stable Result and Snapshot wire schemas,
// using stdlib encoding/json (no example repo in this corpus reaches for
// an alternative JSON codec for a stable external schema like this one —
// see DESIGN.md) and crypto/sha256 for the firmware hash.
//
// Grounded on original_source/crates/cli/src/main.rs's TestResult/
// Snapshot structs, adapted from serde's tagged-enum Snapshot variant to
// a single Go struct carrying a Type discriminator, since Go has no
// tagged-union equivalent.
package result

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/w1ne/labwired/core/config"
)

// Status is the top-level outcome of a test run.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// NamedValue names the limit or observation that triggered a stop, used
// for StopReasonDetails's triggered_limit and observed fields.
type NamedValue struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// StopReasonDetails elaborates on Result.StopReason with which limit
// actually fired and what was observed when it did.
type StopReasonDetails struct {
	TriggeredStopCondition config.StopReason `json:"triggered_stop_condition"`
	TriggeredLimit         *NamedValue       `json:"triggered_limit,omitempty"`
	Observed               *NamedValue       `json:"observed,omitempty"`
}

// AssertionResult pairs one test-script assertion with whether it passed.
type AssertionResult struct {
	Assertion config.Assertion `json:"assertion"`
	Passed    bool             `json:"passed"`
}

// TestConfig records which inputs produced this Result.
type TestConfig struct {
	Firmware string `json:"firmware"`
	System   string `json:"system,omitempty"`
	Script   string `json:"script,omitempty"`
}

// Result is the schema-1.0 Result document.
type Result struct {
	ResultSchemaVersion string             `json:"result_schema_version"`
	Status              Status             `json:"status"`
	StepsExecuted       uint64             `json:"steps_executed"`
	Cycles              uint64             `json:"cycles"`
	Instructions        uint64             `json:"instructions"`
	StopReason          config.StopReason  `json:"stop_reason"`
	StopReasonDetails   StopReasonDetails  `json:"stop_reason_details"`
	Limits              config.TestLimits  `json:"limits"`
	Message             string             `json:"message,omitempty"`
	Assertions          []AssertionResult  `json:"assertions"`
	FirmwareHash        string             `json:"firmware_hash"`
	Config              TestConfig         `json:"config"`
}

// NewResult builds a Result whose Status is derived from stopReason and
// whether every assertion passed: StatusError for a config/decode/memory
// failure, StatusFail if any assertion failed, StatusPass otherwise.
func NewResult(stopReason config.StopReason, details StopReasonDetails, limits config.TestLimits, assertions []AssertionResult, firmwareHash string, cfg TestConfig) Result {
	status := StatusPass
	switch stopReason {
	case config.StopReasonConfigError, config.StopReasonMemoryViolation, config.StopReasonDecodeError:
		status = StatusError
	default:
		for _, a := range assertions {
			if !a.Passed {
				status = StatusFail
				break
			}
		}
	}
	return Result{
		ResultSchemaVersion: "1.0",
		Status:              status,
		StopReason:          stopReason,
		StopReasonDetails:   details,
		Limits:              limits,
		Assertions:          assertions,
		FirmwareHash:        firmwareHash,
		Config:              cfg,
	}
}

// FirmwareHash returns the lowercase-hex SHA-256 digest of firmware,
// used for Result.FirmwareHash and the Snapshot schema's equivalent
// field.
func FirmwareHash(firmware []byte) string {
	sum := sha256.Sum256(firmware)
	return hex.EncodeToString(sum[:])
}
