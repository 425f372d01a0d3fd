package machine

import "github.com/w1ne/labwired/internal/errors"

// Debug control facade: breakpoints, single-stepping, and direct
// memory/register access for an external debugger/harness to drive
// without reaching into Machine's private CPU fields. Grounded on the
// hardware/debugger package's AddBreakpoint/HasBreakpoint and
// PokeMemory/PeekMemory, which play the identical role for the 6507.

// AddBreakpoint arms a breakpoint at the given address.
func (m *Machine) AddBreakpoint(address uint32) {
	m.breakpoints[address] = true
}

// RemoveBreakpoint disarms a breakpoint at the given address.
func (m *Machine) RemoveBreakpoint(address uint32) {
	delete(m.breakpoints, address)
}

// ClearBreakpoints disarms every breakpoint.
func (m *Machine) ClearBreakpoints() {
	m.breakpoints = make(map[uint32]bool)
	m.haveLastBkpt = false
}

// Breakpoints returns every currently armed breakpoint address.
func (m *Machine) Breakpoints() []uint32 {
	out := make([]uint32, 0, len(m.breakpoints))
	for addr := range m.breakpoints {
		out = append(out, addr)
	}
	return out
}

// ReadMemory reads a single byte through the system bus, the same path
// any instruction's load would take.
func (m *Machine) ReadMemory(address uint32) (uint8, error) {
	return m.Bus.ReadByte(address)
}

// WriteMemory writes a single byte through the system bus.
func (m *Machine) WriteMemory(address uint32, value uint8) error {
	return m.Bus.WriteByte(address, value)
}

// RegisterNames enumerates the active architecture's general-purpose and
// special register names, in read order for ReadRegister.
func (m *Machine) RegisterNames() []string {
	if m.Arch == ArchRISCV {
		names := make([]string, 0, 33)
		for i := 0; i < 32; i++ {
			names = append(names, "x"+itoa(i))
		}
		return append(names, "pc")
	}
	names := make([]string, 0, 16)
	for i := 0; i <= 12; i++ {
		names = append(names, "r"+itoa(i))
	}
	return append(names, "sp", "lr", "pc", "xpsr")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// ReadRegister returns a register's current value by name (as produced by
// RegisterNames), or an error if name is not recognized.
func (m *Machine) ReadRegister(name string) (uint32, error) {
	if m.Arch == ArchRISCV {
		if name == "pc" {
			return m.riscv.PC, nil
		}
		for i := 0; i < 32; i++ {
			if name == "x"+itoa(i) {
				return m.riscv.X[i], nil
			}
		}
		return 0, errors.Errorf(errors.ConfigError, "unknown riscv register "+name)
	}
	switch name {
	case "sp":
		return m.arm.SP, nil
	case "lr":
		return m.arm.LR, nil
	case "pc":
		return m.arm.PC, nil
	case "xpsr":
		return m.arm.XPSR, nil
	}
	for i := 0; i <= 12; i++ {
		if name == "r"+itoa(i) {
			return m.arm.R[i], nil
		}
	}
	return 0, errors.Errorf(errors.ConfigError, "unknown arm register "+name)
}

// WriteRegister sets a register's value by name.
func (m *Machine) WriteRegister(name string, value uint32) error {
	if m.Arch == ArchRISCV {
		if name == "pc" {
			m.riscv.PC = value
			return nil
		}
		for i := 0; i < 32; i++ {
			if name == "x"+itoa(i) {
				if i != 0 {
					m.riscv.X[i] = value
				}
				return nil
			}
		}
		return errors.Errorf(errors.ConfigError, "unknown riscv register "+name)
	}
	switch name {
	case "sp":
		m.arm.SP = value
		return nil
	case "lr":
		m.arm.LR = value
		return nil
	case "pc":
		m.arm.PC = value
		return nil
	case "xpsr":
		m.arm.XPSR = value
		return nil
	}
	for i := 0; i <= 12; i++ {
		if name == "r"+itoa(i) {
			m.arm.R[i] = value
			return nil
		}
	}
	return errors.Errorf(errors.ConfigError, "unknown arm register "+name)
}

// PeripheralNames lists the names of every peripheral attached to the bus,
// in bus-entry order.
func (m *Machine) PeripheralNames() []string {
	names := make([]string, 0, len(m.Bus.Peripherals))
	for _, e := range m.Bus.Peripherals {
		names = append(names, e.Name)
	}
	return names
}
