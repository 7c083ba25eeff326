package input

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const maxLatencySamples = 1000

// Metrics counts what the engine did with page events.
type Metrics struct {
	keyEvents        atomic.Uint64
	ignored          atomic.Uint64
	matches          atomic.Uint64
	liveConflicts    atomic.Uint64
	sequenceTimeouts atomic.Uint64
	hookConsumptions atomic.Uint64
	recordedEvents   atomic.Uint64

	mu        sync.Mutex
	latencies []time.Duration
	next      int
	peak      time.Duration

	clock clockwork.Clock
	start time.Time
}

// NewMetrics creates a metrics tracker. Uptime is measured on clock.
func NewMetrics(clock clockwork.Clock) *Metrics {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Metrics{
		latencies: make([]time.Duration, 0, maxLatencySamples),
		clock:     clock,
		start:     clock.Now(),
	}
}

// RecordKeyEvent counts a keystroke that reached matching.
func (m *Metrics) RecordKeyEvent() { m.keyEvents.Add(1) }

// RecordIgnored counts a keystroke dropped by a guard.
func (m *Metrics) RecordIgnored() { m.ignored.Add(1) }

// RecordSequenceTimeout counts a buffer cleared by the sequence timeout.
func (m *Metrics) RecordSequenceTimeout() { m.sequenceTimeouts.Add(1) }

// RecordHookConsumption counts an event or action consumed by a hook.
func (m *Metrics) RecordHookConsumption() { m.hookConsumptions.Add(1) }

// RecordLiveConflict counts a firing that shared its pattern.
func (m *Metrics) RecordLiveConflict() { m.liveConflicts.Add(1) }

// RecordRecordedEvent counts an event handed to the recorder.
func (m *Metrics) RecordRecordedEvent() { m.recordedEvents.Add(1) }

// RecordMatch counts a fired shortcut and how long its action took to
// start.
func (m *Metrics) RecordMatch(latency time.Duration) {
	m.matches.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if latency > m.peak {
		m.peak = latency
	}
	if len(m.latencies) < maxLatencySamples {
		m.latencies = append(m.latencies, latency)
		return
	}
	m.latencies[m.next] = latency
	m.next = (m.next + 1) % maxLatencySamples
}

// MetricsSnapshot is a point-in-time view of the metrics.
type MetricsSnapshot struct {
	KeyEvents        uint64
	Ignored          uint64
	Matches          uint64
	LiveConflicts    uint64
	SequenceTimeouts uint64
	HookConsumptions uint64
	RecordedEvents   uint64

	AvgActionLatency  time.Duration
	P99ActionLatency  time.Duration
	PeakActionLatency time.Duration

	Uptime time.Duration
}

// Snapshot returns the current counters and latency stats.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	sorted := slices.Clone(m.latencies)
	peak := m.peak
	m.mu.Unlock()

	snap := MetricsSnapshot{
		KeyEvents:         m.keyEvents.Load(),
		Ignored:           m.ignored.Load(),
		Matches:           m.matches.Load(),
		LiveConflicts:     m.liveConflicts.Load(),
		SequenceTimeouts:  m.sequenceTimeouts.Load(),
		HookConsumptions:  m.hookConsumptions.Load(),
		RecordedEvents:    m.recordedEvents.Load(),
		PeakActionLatency: peak,
		Uptime:            m.clock.Since(m.start),
	}

	if len(sorted) > 0 {
		var sum time.Duration
		for _, l := range sorted {
			sum += l
		}
		snap.AvgActionLatency = sum / time.Duration(len(sorted))

		slices.Sort(sorted)
		idx := min(int(float64(len(sorted))*0.99), len(sorted)-1)
		snap.P99ActionLatency = sorted[idx]
	}
	return snap
}

// Reset clears all counters and samples.
func (m *Metrics) Reset() {
	m.keyEvents.Store(0)
	m.ignored.Store(0)
	m.matches.Store(0)
	m.liveConflicts.Store(0)
	m.sequenceTimeouts.Store(0)
	m.hookConsumptions.Store(0)
	m.recordedEvents.Store(0)

	m.mu.Lock()
	m.latencies = m.latencies[:0]
	m.next = 0
	m.peak = 0
	m.start = m.clock.Now()
	m.mu.Unlock()
}
