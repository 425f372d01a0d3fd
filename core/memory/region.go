// Package memory implements the linear memory region: a contiguous byte
// array addressed by a base and size, used for both guest RAM and guest
// flash by the system bus.
package memory

// Region is a byte-addressable window over [Base, Base+len(Bytes)).
// Flash regions accept writes like any other region — write-protection is
// deliberately not modeled.
type Region struct {
	Base  uint32
	Bytes []byte
}

// NewRegion allocates a zero-filled Region of size bytes starting at base.
func NewRegion(base uint32, size uint32) *Region {
	return &Region{Base: base, Bytes: make([]byte, size)}
}

// Size returns the region's length in bytes.
func (r *Region) Size() uint32 {
	return uint32(len(r.Bytes))
}

// contains reports whether address falls inside [Base, Base+Size).
func (r *Region) contains(address uint32) bool {
	return address >= r.Base && address < r.Base+r.Size()
}

// ReadByte returns the stored byte at address, or ok=false ("miss") if
// address falls outside the region — the caller (the system bus) is
// expected to try the next candidate region on a miss rather than treat it
// as an error.
func (r *Region) ReadByte(address uint32) (value uint8, ok bool) {
	if !r.contains(address) {
		return 0, false
	}
	return r.Bytes[address-r.Base], true
}

// WriteByte stores value at address unconditionally if address falls
// inside the region, or reports ok=false ("miss") otherwise. No alignment
// requirement is imposed.
func (r *Region) WriteByte(address uint32, value uint8) (ok bool) {
	if !r.contains(address) {
		return false
	}
	r.Bytes[address-r.Base] = value
	return true
}

// LoadSegment copies data into the region starting at loadAddress,
// returning ok=false without copying anything if the segment does not fit
// entirely within the region, so a caller can fall back to the next
// candidate region (or skip the segment with a diagnostic) without
// partial, half-loaded state.
func (r *Region) LoadSegment(loadAddress uint32, data []byte) (ok bool) {
	if len(data) == 0 {
		return r.contains(loadAddress) || loadAddress == r.Base+r.Size()
	}
	end := loadAddress + uint32(len(data))
	if loadAddress < r.Base || end > r.Base+r.Size() || end < loadAddress {
		return false
	}
	copy(r.Bytes[loadAddress-r.Base:], data)
	return true
}

// Snapshot returns a copy of the region's contents, suitable for inclusion
// in a Machine snapshot.
func (r *Region) Snapshot() []byte {
	out := make([]byte, len(r.Bytes))
	copy(out, r.Bytes)
	return out
}

// Restore replaces the region's contents with state, which must be exactly
// Size() bytes.
func (r *Region) Restore(state []byte) bool {
	if len(state) != len(r.Bytes) {
		return false
	}
	copy(r.Bytes, state)
	return true
}
