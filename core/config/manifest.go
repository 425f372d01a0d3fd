package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/w1ne/labwired/internal/errors"
	"gopkg.in/yaml.v3"
)

// ExternalDevice models one simulated device attached to the system,
// connected either to a named peripheral id or a pin notation like "pa5".
type ExternalDevice struct {
	ID         string                 `yaml:"id"`
	Type       string                 `yaml:"type"`
	Connection string                 `yaml:"connection"`
	Config     map[string]interface{} `yaml:"config,omitempty"`
}

var pinNotation = regexp.MustCompile(`^p[a-z][0-9]+$`)

// IsPinConnection reports whether this device's connection is a pin
// notation ("pa5") rather than a peripheral id.
func (d ExternalDevice) IsPinConnection() bool {
	return pinNotation.MatchString(d.Connection)
}

// BoardIoKind distinguishes a board-level LED from a button.
type BoardIoKind string

const (
	BoardIoLed    BoardIoKind = "led"
	BoardIoButton BoardIoKind = "button"
)

// BoardIoSignal distinguishes whether a binding reads or drives its pin.
type BoardIoSignal string

const (
	SignalInput  BoardIoSignal = "input"
	SignalOutput BoardIoSignal = "output"
)

// BoardIoBinding projects one GPIO register bit to a named board-level
// signal.
type BoardIoBinding struct {
	ID         string        `yaml:"id"`
	Kind       BoardIoKind   `yaml:"kind"`
	Peripheral string        `yaml:"peripheral"`
	Pin        uint8         `yaml:"pin"`
	Signal     BoardIoSignal `yaml:"signal"`
	ActiveHigh *bool         `yaml:"active_high,omitempty"`
}

// IsActiveHigh reports this binding's active_high setting, defaulting to
// true when omitted (original_source's `default_true`).
func (b BoardIoBinding) IsActiveHigh() bool {
	return b.ActiveHigh == nil || *b.ActiveHigh
}

// SystemManifest is the parsed form of a system manifest YAML document:
// the chip it targets plus whatever external devices and board-level I/O
// bindings ride on top of it.
type SystemManifest struct {
	SchemaVersion   string           `yaml:"schema_version"`
	Name            string           `yaml:"name"`
	Chip            string           `yaml:"chip"`
	ExternalDevices []ExternalDevice `yaml:"external_devices,omitempty"`
	BoardIO         []BoardIoBinding `yaml:"board_io,omitempty"`

	// path is the manifest's own location, recorded so ResolvedChipPath
	// can resolve Chip relative to it rather than to the process's
	// working directory.
	path string
}

// LoadSystemManifest reads and parses a system manifest from path.
func LoadSystemManifest(path string) (*SystemManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("reading system manifest %s: %s", path, err))
	}
	var m SystemManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("parsing system manifest %s: %s", path, err))
	}
	if m.SchemaVersion == "" {
		m.SchemaVersion = "1.0"
	}
	m.path = path
	return &m, nil
}

// ResolvedChipPath returns the Chip field resolved relative to the
// manifest's own directory, so a manifest can reference its chip
// descriptor by a path relative to itself rather than to the process's
// working directory.
func (m *SystemManifest) ResolvedChipPath() string {
	if filepath.IsAbs(m.Chip) {
		return m.Chip
	}
	return filepath.Join(filepath.Dir(m.path), m.Chip)
}
