// Package system turns a parsed config.ChipDescriptor into a runnable
// machine.Machine: it is the glue between the YAML-described external
// interfaces and the in-memory bus/peripheral/CPU core, a role
// original_source/crates/core/src/lib.rs's Simulator::from_config plays
// for the Rust implementation (cartridges in a 6502-class emulator are
// self-describing ROM images, not an externally declared peripheral map,
// so there is no direct prior-art analogue for this package).
package system

import (
	"fmt"

	"github.com/w1ne/labwired/core/bus"
	"github.com/w1ne/labwired/core/config"
	"github.com/w1ne/labwired/core/declarative"
	"github.com/w1ne/labwired/core/instance"
	"github.com/w1ne/labwired/core/machine"
	"github.com/w1ne/labwired/core/memory"
	"github.com/w1ne/labwired/core/peripherals"
	"github.com/w1ne/labwired/core/systembus"
	"github.com/w1ne/labwired/internal/errors"
)

// Build constructs a Machine from a validated chip descriptor: flash and
// RAM regions sized per the descriptor, every peripheral entry resolved
// by peripheralFor, and an NVIC when the architecture is ARM (RISC-V has
// no NVIC; its interrupt CSRs live entirely inside core/cpu/riscv).
func Build(chip *config.ChipDescriptor, inst *instance.Instance) (*machine.Machine, error) {
	if err := chip.Validate(); err != nil {
		return nil, err
	}
	arch, err := config.ResolveArch(chip.Arch)
	if err != nil {
		return nil, err
	}

	flashSize, err := chip.Flash.SizeBytes()
	if err != nil {
		return nil, err
	}
	ramSize, err := chip.RAM.SizeBytes()
	if err != nil {
		return nil, err
	}

	b := systembus.New()
	b.Flash = memory.NewRegion(uint32(chip.Flash.Base), uint32(flashSize))
	b.RAM = memory.NewRegion(uint32(chip.RAM.Base), uint32(ramSize))

	for _, p := range chip.Peripherals {
		dev, err := peripheralFor(p)
		if err != nil {
			return nil, err
		}
		size, err := p.SizeBytes()
		if err != nil {
			return nil, err
		}
		entry := bus.Entry{Base: uint32(p.BaseAddress), Size: uint32(size), Dev: dev}
		if p.IRQ != nil {
			entry.IRQ = p.IRQ
		}
		b.Peripherals = append(b.Peripherals, entry)
	}

	var nvic *peripherals.NVIC
	var machineArch machine.Architecture
	switch arch {
	case config.ArchARM:
		machineArch = machine.ArchARM
		nvic = peripherals.NewNVIC(uint32(chip.Flash.Base))
	case config.ArchRISCV:
		machineArch = machine.ArchRISCV
	}

	return machine.New(machineArch, b, nvic, inst), nil
}

// peripheralFor instantiates the bus.Peripheral named by cfg.Type. The
// handful of peripherals with genuine stateful behavior (uart, gpio,
// systick, adc, dma) use their dedicated hand-coded implementations;
// everything else falls back to a declarative.Interpreter built by the
// matching core/peripherals declarative_builtins.go constructor, following
// the declarative pattern wherever a register map is simple enough not to
// need bespoke Go logic.
func peripheralFor(cfg config.PeripheralConfig) (bus.Peripheral, error) {
	switch cfg.Type {
	case "uart":
		layout := peripherals.UartLayoutLegacy
		if v, ok := cfg.Config["layout"].(string); ok && v == "modern" {
			layout = peripherals.UartLayoutModern
		}
		echo, _ := cfg.Config["echo"].(bool)
		return peripherals.NewUart(layout, echo), nil
	case "gpio_v1", "gpio":
		return peripherals.NewGpioPort(peripherals.ProfileSTM32F1), nil
	case "gpio_v2":
		return peripherals.NewGpioPort(peripherals.ProfileSTM32V2), nil
	case "systick":
		return peripherals.NewSysTick(), nil
	case "adc":
		return peripherals.NewAdc(), nil
	case "dma":
		return peripherals.NewDma(), nil
	case "timer":
		irqName := fmt.Sprintf("%s_irq", cfg.ID)
		irqNumber := uint32(0)
		if cfg.IRQ != nil {
			irqNumber = *cfg.IRQ
		}
		return peripherals.NewTimer(irqName, irqNumber), nil
	case "i2c":
		return peripherals.NewI2C(), nil
	case "spi":
		return peripherals.NewSPI(), nil
	case "exti":
		return peripherals.NewEXTI(), nil
	case "afio":
		return peripherals.NewAFIO(), nil
	case "rcc":
		return peripherals.NewRCC(), nil
	case "declarative":
		return declarativeFromConfig(cfg)
	}
	return nil, errors.Errorf(errors.ConfigError, fmt.Sprintf("unknown peripheral type %q for %q", cfg.Type, cfg.ID))
}

// declarativeFromConfig is a placeholder for a future fully data-driven
// peripheral: type "declarative" names a peripheral whose register map
// comes entirely from cfg.Config rather than a Go constructor. Only the
// minimal shape actually exercised here (a bare read/write register with
// no triggers or timing) is supported.
func declarativeFromConfig(cfg config.PeripheralConfig) (bus.Peripheral, error) {
	d := declarative.Descriptor{Peripheral: cfg.ID}
	for name, raw := range cfg.Config {
		offset, ok := raw.(int)
		if !ok {
			continue
		}
		d.Registers = append(d.Registers, declarative.Register{
			ID:            name,
			AddressOffset: uint32(offset),
			Size:          declarative.Size32,
			Access:        declarative.ReadWrite,
		})
	}
	return declarative.New(d), nil
}
