package memory_test

import (
	"testing"

	"github.com/w1ne/labwired/core/memory"
	"github.com/w1ne/labwired/internal/test"
)

func TestReadWriteRoundTrip(t *testing.T) {
	r := memory.NewRegion(0x2000_0000, 0x100)

	test.ExpectEquality(t, r.WriteByte(0x2000_0000, 0x42), true)
	v, ok := r.ReadByte(0x2000_0000)
	test.ExpectEquality(t, ok, true)
	test.ExpectEquality(t, v, uint8(0x42))
}

func TestBoundaryAtLastValidAddress(t *testing.T) {
	r := memory.NewRegion(0x0, 0x10)

	_, ok := r.ReadByte(0xF)
	test.ExpectEquality(t, ok, true)

	_, ok = r.ReadByte(0x10)
	test.ExpectEquality(t, ok, false)

	ok = r.WriteByte(0x10, 0xFF)
	test.ExpectEquality(t, ok, false)
}

func TestMissOutsideWindow(t *testing.T) {
	r := memory.NewRegion(0x1000, 0x10)

	_, ok := r.ReadByte(0x0FFF)
	test.ExpectEquality(t, ok, false)

	ok = r.WriteByte(0x2000, 1)
	test.ExpectEquality(t, ok, false)
}

func TestLoadSegmentAllOrNothing(t *testing.T) {
	r := memory.NewRegion(0x0, 0x10)

	ok := r.LoadSegment(0x8, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	test.ExpectEquality(t, ok, false)

	for i := uint32(0); i < r.Size(); i++ {
		v, _ := r.ReadByte(i)
		test.ExpectEquality(t, v, uint8(0))
	}

	ok = r.LoadSegment(0x4, []byte{0xAA, 0xBB})
	test.ExpectEquality(t, ok, true)
	v, _ := r.ReadByte(0x4)
	test.ExpectEquality(t, v, uint8(0xAA))
	v, _ = r.ReadByte(0x5)
	test.ExpectEquality(t, v, uint8(0xBB))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	r := memory.NewRegion(0x0, 0x8)
	r.WriteByte(0x3, 0x99)

	snap := r.Snapshot()

	r2 := memory.NewRegion(0x0, 0x8)
	ok := r2.Restore(snap)
	test.ExpectEquality(t, ok, true)

	v, _ := r2.ReadByte(0x3)
	test.ExpectEquality(t, v, uint8(0x99))
	test.ExpectEquality(t, r2.Snapshot(), r.Snapshot())
}
