// Package observer defines the Observer protocol: the set of
// lifecycle/step/peripheral/memory hooks a Machine notifies as it runs.
// Observers are shared by reference and must be safe to call from a single
// goroutine at a time without additional locking on the Machine's part —
// mutation *inside* an observer is expected to use its own synchronization
// (atomics suffice for counter-style metrics).
//
// Grounded on the television.Television / gui notification pattern (a
// small interface of named lifecycle callbacks implemented by whichever
// component wants to observe the emulator), adapted here to a five-hook
// protocol.
package observer

// Observer is implemented by anything that wants to watch a Machine run.
// Embed NopObserver to satisfy the interface without implementing every
// method.
type Observer interface {
	OnSimulationStart()
	OnSimulationStop()
	OnStepStart(pc uint32, opcode uint32)
	OnStepEnd(cycles uint32)
	OnPeripheralTick(name string, cycles uint32)
	OnMemoryWrite(address uint32, old, new uint8)

	// OnVFITrace is an optional extension beyond the core five hooks,
	// supplementing the fault-injection trace feature present in
	// original_source/crates/core/src/vfi.rs (Value/Fault-Injection
	// tracing) that the distilled specification dropped. Its arguments are
	// a step's PC and a human-readable description of any fault injected
	// during that step. Nothing in this module calls it; Broadcaster
	// forwards it like the other hooks, and NopObserver makes it free to
	// ignore for observers that don't care.
	OnVFITrace(pc uint32, description string)
}

// NopObserver implements every Observer method as a no-op, so a concrete
// observer only needs to override the hooks it cares about.
type NopObserver struct{}

func (NopObserver) OnSimulationStart()                            {}
func (NopObserver) OnSimulationStop()                             {}
func (NopObserver) OnStepStart(pc uint32, opcode uint32)          {}
func (NopObserver) OnStepEnd(cycles uint32)                       {}
func (NopObserver) OnPeripheralTick(name string, cycles uint32)   {}
func (NopObserver) OnMemoryWrite(address uint32, old, new uint8)  {}
func (NopObserver) OnVFITrace(pc uint32, description string)      {}

// Broadcaster fans every Observer method out to a list of observers, so
// the Machine only needs to hold one Observer (itself) regardless of how
// many real observers are attached.
type Broadcaster struct {
	observers []Observer
}

// NewBroadcaster creates a Broadcaster wrapping the given observers.
func NewBroadcaster(observers ...Observer) *Broadcaster {
	return &Broadcaster{observers: observers}
}

// Add appends another observer to the broadcast list.
func (b *Broadcaster) Add(o Observer) {
	b.observers = append(b.observers, o)
}

func (b *Broadcaster) OnSimulationStart() {
	for _, o := range b.observers {
		o.OnSimulationStart()
	}
}

func (b *Broadcaster) OnSimulationStop() {
	for _, o := range b.observers {
		o.OnSimulationStop()
	}
}

func (b *Broadcaster) OnStepStart(pc uint32, opcode uint32) {
	for _, o := range b.observers {
		o.OnStepStart(pc, opcode)
	}
}

func (b *Broadcaster) OnStepEnd(cycles uint32) {
	for _, o := range b.observers {
		o.OnStepEnd(cycles)
	}
}

func (b *Broadcaster) OnPeripheralTick(name string, cycles uint32) {
	for _, o := range b.observers {
		o.OnPeripheralTick(name, cycles)
	}
}

func (b *Broadcaster) OnMemoryWrite(address uint32, old, new uint8) {
	for _, o := range b.observers {
		o.OnMemoryWrite(address, old, new)
	}
}

func (b *Broadcaster) OnVFITrace(pc uint32, description string) {
	for _, o := range b.observers {
		o.OnVFITrace(pc, description)
	}
}
