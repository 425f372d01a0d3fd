package errors

// Message patterns used to curate the core's error taxonomy. Each pattern is
// matched with Is()/Has() rather than a sentinel value, so a caller can
// recover the stop-reason kind without importing every package that might
// produce one.
const (
	// MemoryViolation is raised by the bus for any access outside RAM,
	// flash, or a peripheral's declared window, and by peripherals that
	// signal their own access errors. Fatal to the step that caused it.
	MemoryViolation = "memory violation at address %#08x"

	// DecodeError is raised only by ISAs that refuse to decode (RISC-V
	// unknown opcodes). ARM's unknown 16-bit opcodes are logged and
	// skipped rather than raised.
	DecodeError = "decode error at pc %#08x"

	// Halt is never raised by a CPU interpreter. It exists so an external
	// loop driver can report it as a stop reason after deliberately
	// halting the machine (eg. on a breakpoint).
	Halt = "halted"

	// ConfigError is raised only by loaders and harnesses (core/config,
	// core/image, core/harness), never by the CPU/bus/peripheral core.
	ConfigError = "configuration error: %s"
)
