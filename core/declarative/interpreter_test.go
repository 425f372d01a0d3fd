package declarative_test

import (
	"testing"

	"github.com/w1ne/labwired/core/declarative"
	"github.com/w1ne/labwired/internal/test"
)

func uint32p(v uint32) *uint32 { return &v }

func TestWriteOneToClear(t *testing.T) {
	d := declarative.Descriptor{
		Peripheral: "test",
		Registers: []declarative.Register{
			{
				ID:            "SR",
				AddressOffset: 0,
				Size:          declarative.Size8,
				Access:        declarative.ReadWrite,
				ResetValue:    0x78,
				SideEffects:   &declarative.SideEffects{WriteAction: declarative.WriteOneToClear},
			},
		},
	}
	in := declarative.New(d)

	v, ok := in.Read(0)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, v, uint8(0x78))

	ok = in.Write(0, 0x08)
	test.ExpectEquality(t, ok, true)

	v, _ = in.Read(0)
	test.ExpectEquality(t, v, uint8(0x70))
}

func TestClearOnRead(t *testing.T) {
	d := declarative.Descriptor{
		Peripheral: "test",
		Registers: []declarative.Register{
			{
				ID:            "DR",
				AddressOffset: 0,
				Size:          declarative.Size8,
				Access:        declarative.ReadWrite,
				ResetValue:    0xAA,
				SideEffects:   &declarative.SideEffects{ReadAction: declarative.ClearOnRead},
			},
		},
	}
	in := declarative.New(d)

	v, _ := in.Read(0)
	test.ExpectEquality(t, v, uint8(0xAA))

	v, _ = in.Read(0)
	test.ExpectEquality(t, v, uint8(0))
}

func TestWriteOnlyReadsZero(t *testing.T) {
	d := declarative.Descriptor{
		Registers: []declarative.Register{
			{ID: "TDR", AddressOffset: 0, Size: declarative.Size8, Access: declarative.WriteOnly, ResetValue: 0x55},
		},
	}
	in := declarative.New(d)

	v, ok := in.Read(0)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, v, uint8(0))
}

func TestReadOnlyIgnoresWrite(t *testing.T) {
	d := declarative.Descriptor{
		Registers: []declarative.Register{
			{ID: "IDR", AddressOffset: 0, Size: declarative.Size8, Access: declarative.ReadOnly, ResetValue: 0x12},
		},
	}
	in := declarative.New(d)

	ok := in.Write(0, 0x99)
	test.ExpectEquality(t, ok, true)

	v, _ := in.Read(0)
	test.ExpectEquality(t, v, uint8(0x12))
}

func TestWriteTriggerDelayedAction(t *testing.T) {
	d := declarative.Descriptor{
		Registers: []declarative.Register{
			{ID: "CR", AddressOffset: 0, Size: declarative.Size8, Access: declarative.ReadWrite, ResetValue: 0},
			{ID: "SR", AddressOffset: 1, Size: declarative.Size8, Access: declarative.ReadWrite, ResetValue: 0},
		},
		Timing: []declarative.TimingHook{
			{
				ID: "start",
				Trigger: declarative.Trigger{
					Kind:     declarative.TriggerWrite,
					Register: "CR",
					Value:    uint32p(0x01),
				},
				DelayCycles: 2,
				Action: declarative.Action{
					Kind:     declarative.ActionSetBits,
					Register: "SR",
					Value:    0x01,
				},
			},
		},
	}
	in := declarative.New(d)

	in.Write(0, 0x01)

	v, _ := in.Read(1)
	test.ExpectEquality(t, v, uint8(0))

	in.Tick()
	v, _ = in.Read(1)
	test.ExpectEquality(t, v, uint8(0))

	in.Tick()
	v, _ = in.Read(1)
	test.ExpectEquality(t, v, uint8(0x01))
}

func TestPeriodicHookFiresEveryPPlusOneTicks(t *testing.T) {
	d := declarative.Descriptor{
		Peripheral: "timer",
		Registers: []declarative.Register{
			{ID: "CNT", AddressOffset: 0, Size: declarative.Size8, Access: declarative.ReadWrite, ResetValue: 0},
		},
		Interrupts: map[string]uint32{"TIM_IRQ": 28},
		Timing: []declarative.TimingHook{
			{
				ID:            "overflow",
				Trigger:       declarative.Trigger{Kind: declarative.TriggerPeriodic, PeriodCycles: 2},
				DelayCycles:   0,
				Action:        declarative.Action{Kind: declarative.ActionSetBits, Register: "CNT", Value: 0x01},
				InterruptName: "TIM_IRQ",
			},
		},
	}
	in := declarative.New(d)

	fireTicks := []int{}
	for i := 0; i < 9; i++ {
		// Clear CNT each tick so repeated firings are observable.
		in.Write(0, 0x00)
		result := in.Tick()
		if len(result.ExplicitIRQs) > 0 {
			test.ExpectEquality(t, result.ExplicitIRQs[0], uint32(28))
			fireTicks = append(fireTicks, i)
		}
	}

	test.ExpectEquality(t, len(fireTicks), 3)
	test.ExpectEquality(t, fireTicks[0], 2)
	test.ExpectEquality(t, fireTicks[1], 5)
	test.ExpectEquality(t, fireTicks[2], 8)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	d := declarative.Descriptor{
		Registers: []declarative.Register{
			{ID: "R", AddressOffset: 0, Size: declarative.Size8, Access: declarative.ReadWrite, ResetValue: 0},
		},
	}
	in := declarative.New(d)
	in.Write(0, 0x42)

	snap := in.Snapshot()

	in2 := declarative.New(d)
	err := in2.Restore(snap)
	test.ExpectSuccess(t, err)

	v, _ := in2.Read(0)
	test.ExpectEquality(t, v, uint8(0x42))
}

func TestRestoreRejectsForeignState(t *testing.T) {
	d := declarative.Descriptor{
		Registers: []declarative.Register{{ID: "R", AddressOffset: 0, Size: declarative.Size8}},
	}
	in := declarative.New(d)

	err := in.Restore("not an interpreter state")
	test.ExpectFailure(t, err)
}
