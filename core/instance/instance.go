// Package instance defines those parts of a Machine that might vary from
// instance to instance but are not the machine itself: its preferences and
// its private random source. Grounded on the hardware/instance package,
// which exists for exactly the same reason — running more than one
// instance of the emulation in parallel (here: a harness running many test
// scripts concurrently, each in its own Machine, must never share mutable
// state between them).
package instance

import (
	"github.com/w1ne/labwired/core/preferences"
	"github.com/w1ne/labwired/core/random"
)

// Instance is the per-Machine identity threaded through the CPU, bus and
// peripherals so that none of them ever reach for global state.
type Instance struct {
	Prefs  *preferences.Preferences
	Random *random.Random
}

// New creates an Instance with default preferences and a random source
// seeded from seed. A harness that wants bit-identical runs across
// processes should pass the same seed (or use random.Random.ZeroSeed) for
// every Machine it constructs.
func New(seed int64) *Instance {
	return &Instance{
		Prefs:  preferences.NewDefault(),
		Random: random.NewRandom(seed),
	}
}
