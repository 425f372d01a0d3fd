package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/w1ne/labwired/internal/errors"
)

// ParseSize parses a human-readable size string as used throughout chip
// descriptors: "128KB", "1MB", or a bare byte count.
func ParseSize(s string) (uint64, error) {
	trimmed := strings.TrimSpace(s)
	upper := strings.ToUpper(trimmed)

	var multiplier uint64 = 1
	numeric := upper
	switch {
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		numeric = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		numeric = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "B"):
		numeric = strings.TrimSuffix(upper, "B")
	}
	numeric = strings.TrimSpace(numeric)

	n, err := strconv.ParseUint(numeric, 10, 64)
	if err != nil {
		return 0, errors.Errorf(errors.ConfigError, fmt.Sprintf("invalid size %q", s))
	}
	return n * multiplier, nil
}
