// firmsim is the minimal command-line entrypoint: load a chip descriptor
// and an ELF firmware image, run it under a step budget (-max-steps; no
// cycle, UART or wall-time limit is set), and print the resulting Result
// as JSON. Full CLI ergonomics
// (subcommands, an interactive debugger, assertion scripts) are
// deliberately out of scope; this is the thinnest wrapper that exercises
// the library end to end.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/w1ne/labwired/core/config"
	"github.com/w1ne/labwired/core/harness"
	"github.com/w1ne/labwired/core/image"
	"github.com/w1ne/labwired/core/instance"
	"github.com/w1ne/labwired/core/result"
	"github.com/w1ne/labwired/core/system"
	"github.com/w1ne/labwired/internal/logger"
)

func main() {
	chipPath := flag.String("chip", "", "path to a chip descriptor YAML file")
	firmwarePath := flag.String("firmware", "", "path to an ELF firmware image")
	maxSteps := flag.Uint64("max-steps", 1_000_000, "maximum instructions to execute")
	flag.Parse()

	if *chipPath == "" || *firmwarePath == "" {
		fmt.Fprintln(os.Stderr, "usage: firmsim -chip chip.yaml -firmware firmware.elf [-max-steps N]")
		os.Exit(2)
	}

	r, err := run(*chipPath, *firmwarePath, *maxSteps)
	if err != nil {
		fmt.Fprintln(os.Stderr, "firmsim:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		fmt.Fprintln(os.Stderr, "firmsim: encoding result:", err)
		os.Exit(1)
	}
}

func run(chipPath, firmwarePath string, maxSteps uint64) (*result.Result, error) {
	chip, err := config.LoadChipDescriptor(chipPath)
	if err != nil {
		return nil, err
	}

	m, err := system.Build(chip, instance.New(0))
	if err != nil {
		return nil, err
	}

	firmwareBytes, err := os.ReadFile(firmwarePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(firmwarePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := image.Load(f)
	if err != nil {
		return nil, err
	}
	// A segment outside both flash and RAM is logged and skipped, never
	// a hard load failure (SPEC_FULL.md Open Question decision 3).
	for _, seg := range img.Segments {
		if ok := m.Bus.RAM.LoadSegment(seg.Address, seg.Bytes); ok {
			continue
		}
		if ok := m.Bus.Flash.LoadSegment(seg.Address, seg.Bytes); ok {
			continue
		}
		logger.Logf("image", "segment at %#x fits neither flash nor ram, skipping", seg.Address)
	}

	if err := m.Reset(); err != nil {
		return nil, err
	}

	limits := config.TestLimits{MaxSteps: maxSteps}
	h := harness.New(m, limits)
	stopReason, details := h.Run()

	cfg := result.TestConfig{Firmware: firmwarePath, System: "", Script: ""}
	r := result.NewResult(stopReason, details, limits, nil, result.FirmwareHash(firmwareBytes), cfg)
	r.StepsExecuted = m.Steps()
	r.Cycles = m.Cycles()
	r.Instructions = m.Steps()
	return &r, nil
}
