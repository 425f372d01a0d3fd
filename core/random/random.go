// Package random provides the core's only source of non-determinism: the
// contents of freshly allocated RAM and uninitialized CPU registers. It
// exists as its own package, rather than a raw math/rand call at each
// allocation site, so that a Machine can be put into "ZeroSeed" mode for
// reproducible test runs without threading a flag through every
// constructor.
package random

import "math/rand"

// Random is a small seedable source every Machine instance owns privately,
// so that parallel Machines (eg. a harness running many test scripts
// concurrently) never share entropy state.
type Random struct {
	// ZeroSeed forces Rewindable to return a fixed sequence, used by tests
	// that need uninitialized state to be reproducible across runs.
	ZeroSeed bool

	src *rand.Rand
}

// NewRandom creates a Random seeded from seed. A seed of zero is a valid,
// reproducible seed — it is not the same thing as ZeroSeed, which bypasses
// the generator entirely.
func NewRandom(seed int64) *Random {
	return &Random{src: rand.New(rand.NewSource(seed))}
}

// Rewindable returns a byte of pseudo-random state for use as the initial
// contents of RAM or an uninitialized register at the given logical
// position. When ZeroSeed is set, the same position always yields the same
// byte, which is what lets two independently constructed Randoms produce
// identical uninitialized state in a determinism test.
func (r *Random) Rewindable(position int) uint8 {
	if r.ZeroSeed {
		return uint8(position * 2654435761 >> 24)
	}
	return uint8(r.src.Intn(256))
}

// Uint32 returns a pseudo-random 32-bit word, used to seed an uninitialized
// general-purpose register on reset.
func (r *Random) Uint32() uint32 {
	if r.ZeroSeed {
		return 0
	}
	return r.src.Uint32()
}

// Fill writes pseudo-random bytes into buf, position-indexed from offset so
// that repeated calls over a growing buffer stay consistent under ZeroSeed.
func (r *Random) Fill(buf []byte, offset int) {
	for i := range buf {
		buf[i] = r.Rewindable(offset + i)
	}
}
