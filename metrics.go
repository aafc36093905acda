package droned

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the tick-latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for a running
// drone subsystem. One instance is shared by every actor and the
// supervisor; all fields are updated via atomics so no actor blocks on
// another's metrics writes.
type Metrics struct {
	// Per-actor tick counters
	BatteryTicks       atomic.Uint64
	AccelerometerTicks atomic.Uint64
	FlightTicks        atomic.Uint64
	GPSTicks           atomic.Uint64
	TelemetryTicks     atomic.Uint64

	// Transition counters
	AbortsTotal      atomic.Uint64 // Number of transitions into Abort
	FlyTimeoutsTotal atomic.Uint64 // Stall-detected Fly->Abort transitions

	// Supervisor/watchdog counters
	RespawnsTotal        atomic.Uint64 // Actor respawns after a crash
	LockResetsTotal      atomic.Uint64 // Lock reinitializations after a stall
	SemTimeoutsTotal     atomic.Uint64 // GPS ring empty-wait timeouts
	NoFixTotal           atomic.Uint64 // Telemetry GPS drain timeouts ("NO FIX.")
	ReconnectsTotal      atomic.Uint64 // Successful telemetry TCP (re)connections
	BindRetriesTotal     atomic.Uint64 // Flight controller UDP bind retries

	// Performance tracking
	TotalLatencyNs atomic.Uint64 // Cumulative tick latency in nanoseconds
	TickCount      atomic.Uint64 // Total ticks observed (for average latency)

	// Latency histogram buckets (cumulative counts)
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Subsystem lifecycle
	StartTime atomic.Int64 // Supervisor start timestamp (UnixNano)
	StopTime  atomic.Int64 // Supervisor stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordTick records one actor's tick duration by role name.
func (m *Metrics) RecordTick(role string, latencyNs uint64) {
	switch role {
	case "battery":
		m.BatteryTicks.Add(1)
	case "accelerometer":
		m.AccelerometerTicks.Add(1)
	case "flight":
		m.FlightTicks.Add(1)
	case "gps":
		m.GPSTicks.Add(1)
	case "telemetry":
		m.TelemetryTicks.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordAbort records a transition into Abort.
func (m *Metrics) RecordAbort() { m.AbortsTotal.Add(1) }

// RecordFlyTimeout records a stall-detected Fly->Abort transition.
func (m *Metrics) RecordFlyTimeout() { m.FlyTimeoutsTotal.Add(1) }

// RecordRespawn records an actor respawn.
func (m *Metrics) RecordRespawn() { m.RespawnsTotal.Add(1) }

// RecordLockReset records a supervisor lock reinitialization.
func (m *Metrics) RecordLockReset() { m.LockResetsTotal.Add(1) }

// RecordSemTimeout records a GPS ring empty-wait timeout.
func (m *Metrics) RecordSemTimeout() { m.SemTimeoutsTotal.Add(1) }

// RecordNoFix records a telemetry GPS drain timeout.
func (m *Metrics) RecordNoFix() { m.NoFixTotal.Add(1) }

// RecordReconnect records a successful telemetry TCP (re)connection.
func (m *Metrics) RecordReconnect() { m.ReconnectsTotal.Add(1) }

// RecordBindRetry records a flight controller UDP bind retry.
func (m *Metrics) RecordBindRetry() { m.BindRetriesTotal.Add(1) }

// recordLatency records tick latency and updates the histogram.
func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.TickCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the subsystem as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	BatteryTicks       uint64
	AccelerometerTicks uint64
	FlightTicks        uint64
	GPSTicks           uint64
	TelemetryTicks     uint64

	AbortsTotal      uint64
	FlyTimeoutsTotal uint64
	RespawnsTotal    uint64
	LockResetsTotal  uint64
	SemTimeoutsTotal uint64
	NoFixTotal       uint64
	ReconnectsTotal  uint64
	BindRetriesTotal uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyHistogram [numLatencyBuckets]uint64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		BatteryTicks:       m.BatteryTicks.Load(),
		AccelerometerTicks: m.AccelerometerTicks.Load(),
		FlightTicks:        m.FlightTicks.Load(),
		GPSTicks:           m.GPSTicks.Load(),
		TelemetryTicks:     m.TelemetryTicks.Load(),
		AbortsTotal:        m.AbortsTotal.Load(),
		FlyTimeoutsTotal:   m.FlyTimeoutsTotal.Load(),
		RespawnsTotal:      m.RespawnsTotal.Load(),
		LockResetsTotal:    m.LockResetsTotal.Load(),
		SemTimeoutsTotal:   m.SemTimeoutsTotal.Load(),
		NoFixTotal:         m.NoFixTotal.Load(),
		ReconnectsTotal:    m.ReconnectsTotal.Load(),
		BindRetriesTotal:   m.BindRetriesTotal.Load(),
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	tickCount := m.TickCount.Load()
	if tickCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / tickCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	return snap
}

// Reset resets all metrics counters (useful for testing).
func (m *Metrics) Reset() {
	m.BatteryTicks.Store(0)
	m.AccelerometerTicks.Store(0)
	m.FlightTicks.Store(0)
	m.GPSTicks.Store(0)
	m.TelemetryTicks.Store(0)
	m.AbortsTotal.Store(0)
	m.FlyTimeoutsTotal.Store(0)
	m.RespawnsTotal.Store(0)
	m.LockResetsTotal.Store(0)
	m.SemTimeoutsTotal.Store(0)
	m.NoFixTotal.Store(0)
	m.ReconnectsTotal.Store(0)
	m.BindRetriesTotal.Store(0)
	m.TotalLatencyNs.Store(0)
	m.TickCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable collection of actor events. Actors call it
// directly so the metrics storage backend (in-memory Metrics, Prometheus,
// or a no-op during tests) stays swappable without touching actor code.
type Observer interface {
	ObserveTick(role string, latencyNs uint64)
	ObserveAbort()
	ObserveFlyTimeout()
	ObserveRespawn(role string)
	ObserveLockReset()
	ObserveSemTimeout()
	ObserveNoFix()
	ObserveReconnect()
	ObserveBindRetry()
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTick(string, uint64) {}
func (NoOpObserver) ObserveAbort()               {}
func (NoOpObserver) ObserveFlyTimeout()           {}
func (NoOpObserver) ObserveRespawn(string)        {}
func (NoOpObserver) ObserveLockReset()            {}
func (NoOpObserver) ObserveSemTimeout()           {}
func (NoOpObserver) ObserveNoFix()                {}
func (NoOpObserver) ObserveReconnect()            {}
func (NoOpObserver) ObserveBindRetry()            {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTick(role string, latencyNs uint64) { o.metrics.RecordTick(role, latencyNs) }
func (o *MetricsObserver) ObserveAbort()                             { o.metrics.RecordAbort() }
func (o *MetricsObserver) ObserveFlyTimeout()                        { o.metrics.RecordFlyTimeout() }
func (o *MetricsObserver) ObserveRespawn(string)                     { o.metrics.RecordRespawn() }
func (o *MetricsObserver) ObserveLockReset()                         { o.metrics.RecordLockReset() }
func (o *MetricsObserver) ObserveSemTimeout()                        { o.metrics.RecordSemTimeout() }
func (o *MetricsObserver) ObserveNoFix()                             { o.metrics.RecordNoFix() }
func (o *MetricsObserver) ObserveReconnect()                         { o.metrics.RecordReconnect() }
func (o *MetricsObserver) ObserveBindRetry()                         { o.metrics.RecordBindRetry() }

// Compile-time interface checks
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
