package peripherals

import "github.com/w1ne/labwired/core/declarative"

// NewTimer builds a general-purpose timer (TIM2/TIM3-style) as a
// declarative.Interpreter: CR1 (enable bit 0), CNT, ARR (auto-reload
// value), SR (UIF update-interrupt flag at bit 0, write-one-to-clear). Its
// one periodic timing hook fires every tick and sets bit 0 of CNT; CNT does
// not count up, ARR is never compared against, and the model neither sets
// UIF nor raises the timer's IRQ.
func NewTimer(irqName string, irqNumber uint32) *declarative.Interpreter {
	d := declarative.Descriptor{
		Peripheral: "timer",
		Registers: []declarative.Register{
			{ID: "CR1", AddressOffset: 0x00, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "CNT", AddressOffset: 0x24, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "ARR", AddressOffset: 0x2C, Size: declarative.Size32, Access: declarative.ReadWrite, ResetValue: 0xFFFF_FFFF},
			{
				ID: "SR", AddressOffset: 0x10, Size: declarative.Size32, Access: declarative.ReadWrite,
				SideEffects: &declarative.SideEffects{WriteAction: declarative.WriteOneToClear},
			},
		},
		Interrupts: map[string]uint32{irqName: irqNumber},
		Timing: []declarative.TimingHook{
			{
				ID:      "tick",
				Trigger: declarative.Trigger{Kind: declarative.TriggerPeriodic, PeriodCycles: 0},
				Action:  declarative.Action{Kind: declarative.ActionSetBits, Register: "CNT", Value: 1},
			},
		},
	}
	return declarative.New(d)
}

// NewI2C builds a minimal I2C controller exposing CR1 (enable), SR1/SR2
// (status, byte-transfer-finished latch), DR (data register).
func NewI2C() *declarative.Interpreter {
	d := declarative.Descriptor{
		Peripheral: "i2c",
		Registers: []declarative.Register{
			{ID: "CR1", AddressOffset: 0x00, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "SR1", AddressOffset: 0x14, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "SR2", AddressOffset: 0x18, Size: declarative.Size32, Access: declarative.ReadOnly},
			{ID: "DR", AddressOffset: 0x10, Size: declarative.Size32, Access: declarative.ReadWrite},
		},
	}
	return declarative.New(d)
}

// NewSPI builds a minimal SPI controller: CR1 (enable), SR (TXE/RXNE
// flags), DR (data register, any write sets the transfer-complete flag,
// SR bit 0, on the next tick since this simulator has no external SPI
// device model to wait on).
func NewSPI() *declarative.Interpreter {
	d := declarative.Descriptor{
		Peripheral: "spi",
		Registers: []declarative.Register{
			{ID: "CR1", AddressOffset: 0x00, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "SR", AddressOffset: 0x08, Size: declarative.Size32, Access: declarative.ReadWrite, ResetValue: 0x02},
			{ID: "DR", AddressOffset: 0x0C, Size: declarative.Size32, Access: declarative.ReadWrite},
		},
		Timing: []declarative.TimingHook{
			{
				ID:      "tx-complete",
				Trigger: declarative.Trigger{Kind: declarative.TriggerWrite, Register: "DR", Value: nil, Mask: nil},
				Action:  declarative.Action{Kind: declarative.ActionSetBits, Register: "SR", Value: 0x01},
			},
		},
	}
	return declarative.New(d)
}

// NewEXTI builds the external-interrupt-line controller: IMR (interrupt
// mask), PR (pending register, write-one-to-clear). No timing hooks — EXTI
// lines are driven by GPIO/board-IO bindings, not by this core's timing
// model.
func NewEXTI() *declarative.Interpreter {
	d := declarative.Descriptor{
		Peripheral: "exti",
		Registers: []declarative.Register{
			{ID: "IMR", AddressOffset: 0x00, Size: declarative.Size32, Access: declarative.ReadWrite},
			{
				ID: "PR", AddressOffset: 0x14, Size: declarative.Size32, Access: declarative.ReadWrite,
				SideEffects: &declarative.SideEffects{WriteAction: declarative.WriteOneToClear},
			},
		},
	}
	return declarative.New(d)
}

// NewAFIO builds the alternate-function remap/EXTI-source-selection
// registers as a flat declarative register file (AFIO_EVCR, AFIO_MAPR,
// AFIO_EXTICR1..4).
func NewAFIO() *declarative.Interpreter {
	d := declarative.Descriptor{
		Peripheral: "afio",
		Registers: []declarative.Register{
			{ID: "EVCR", AddressOffset: 0x00, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "MAPR", AddressOffset: 0x04, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "EXTICR1", AddressOffset: 0x08, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "EXTICR2", AddressOffset: 0x0C, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "EXTICR3", AddressOffset: 0x10, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "EXTICR4", AddressOffset: 0x14, Size: declarative.Size32, Access: declarative.ReadWrite},
		},
	}
	return declarative.New(d)
}

// NewRCC builds the reset-and-clock-control register file: CR (clock
// ready flags, pre-set since this simulator never models unstable clocks),
// CFGR (system clock switch/status), APB2/APB1/AHB peripheral-enable
// registers.
func NewRCC() *declarative.Interpreter {
	d := declarative.Descriptor{
		Peripheral: "rcc",
		Registers: []declarative.Register{
			{ID: "CR", AddressOffset: 0x00, Size: declarative.Size32, Access: declarative.ReadWrite, ResetValue: 0x0000_0083},
			{ID: "CFGR", AddressOffset: 0x04, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "APB2ENR", AddressOffset: 0x18, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "APB1ENR", AddressOffset: 0x1C, Size: declarative.Size32, Access: declarative.ReadWrite},
			{ID: "AHBENR", AddressOffset: 0x14, Size: declarative.Size32, Access: declarative.ReadWrite},
		},
	}
	return declarative.New(d)
}
