package config_test

import (
	"testing"

	"github.com/w1ne/labwired/core/config"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"128KB", 128 * 1024},
		{"1MB", 1024 * 1024},
		{"512B", 512},
		{"1024", 1024},
		{"  64kb  ", 64 * 1024},
	}
	for _, c := range cases {
		got, err := config.ParseSize(c.in)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	if _, err := config.ParseSize("not-a-size"); err == nil {
		t.Fatalf("expected an error for a non-numeric size string")
	}
}
