package machine

import (
	"sync/atomic"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Metrics holds the atomic counters a Machine updates every Step, safe to
// read concurrently from the dashboard goroutine statsview drives:
// instruction count, cycle count, and a total of peripheral IRQ events.
type Metrics struct {
	instructions    uint64
	cycles          uint64
	peripheralTicks uint64
	dashboard       *statsview.Viewer
}

// NewMetrics creates a zeroed Metrics block.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordStep(cycles uint64) {
	atomic.AddUint64(&m.instructions, 1)
	atomic.AddUint64(&m.cycles, cycles)
}

func (m *Metrics) recordPeripheralTick() {
	atomic.AddUint64(&m.peripheralTicks, 1)
}

// Instructions returns the total instructions executed so far.
func (m *Metrics) Instructions() uint64 { return atomic.LoadUint64(&m.instructions) }

// Cycles returns the total cycles attributed so far.
func (m *Metrics) Cycles() uint64 { return atomic.LoadUint64(&m.cycles) }

// PeripheralTicks returns the total peripheral IRQ events observed so far.
func (m *Metrics) PeripheralTicks() uint64 { return atomic.LoadUint64(&m.peripheralTicks) }

// StartDashboard launches the statsview runtime dashboard on addr (eg.
// "localhost:18081"), exposing Go runtime metrics for the process this
// Machine is running in. It is strictly a diagnostic aid: nothing about
// simulation correctness depends on it, and a Machine used in the test
// harness never calls this.
func (m *Metrics) StartDashboard(addr string) {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	m.dashboard = statsview.New()
	go m.dashboard.Start()
}

// StopDashboard shuts the dashboard server down, if one was started.
func (m *Metrics) StopDashboard() {
	if m.dashboard != nil {
		m.dashboard.Stop()
	}
}
