package seguro

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the commit-latency histogram buckets in
// nanoseconds, covering 1us to 10s with logarithmic spacing.
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

// Metrics tracks operational statistics for the ingestion/read-back service.
type Metrics struct {
	// Event counters
	EventsWritten    atomic.Uint64
	EventsRead       atomic.Uint64
	FragmentsWritten atomic.Uint64
	FragmentsRead    atomic.Uint64

	// Byte counters
	BytesWritten atomic.Uint64
	BytesRead    atomic.Uint64

	// Transaction counters
	TransactionsCommitted atomic.Uint64
	TransactionErrors     atomic.Uint64

	// Connection lifecycle
	ClientsAccepted    atomic.Uint64
	ClientsTerminated  atomic.Uint64
	ProtocolViolations atomic.Uint64

	// Commit-latency tracking
	TotalCommitLatencyNs atomic.Uint64
	CommitCount          atomic.Uint64
	LatencyHistogramBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64 // UnixNano
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordWrite records one event write (all its fragments, one commit).
func (m *Metrics) RecordWrite(fragments int, bytes uint64, latencyNs uint64, success bool) {
	m.EventsWritten.Add(1)
	m.FragmentsWritten.Add(uint64(fragments))
	if success {
		m.BytesWritten.Add(bytes)
		m.TransactionsCommitted.Add(1)
	} else {
		m.TransactionErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordRead records one event range-read.
func (m *Metrics) RecordRead(fragments int, bytes uint64, success bool) {
	m.EventsRead.Add(1)
	m.FragmentsRead.Add(uint64(fragments))
	if success {
		m.BytesRead.Add(bytes)
	}
}

// RecordClientAccepted records a new TCP connection being allocated a client.
func (m *Metrics) RecordClientAccepted() { m.ClientsAccepted.Add(1) }

// RecordClientTerminated records a connection closing (graceful or not).
func (m *Metrics) RecordClientTerminated() { m.ClientsTerminated.Add(1) }

// RecordProtocolViolation records a connection torn down for a protocol
// violation (malformed command, bad bracketing, id regression, ...).
func (m *Metrics) RecordProtocolViolation() { m.ProtocolViolations.Add(1) }

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalCommitLatencyNs.Add(latencyNs)
	m.CommitCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyHistogramBuckets[i].Add(1)
		}
	}
}

// Stop marks the service as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, plain-value copy of Metrics.
type MetricsSnapshot struct {
	EventsWritten         uint64
	EventsRead            uint64
	FragmentsWritten      uint64
	FragmentsRead         uint64
	BytesWritten          uint64
	BytesRead             uint64
	TransactionsCommitted uint64
	TransactionErrors     uint64
	ClientsAccepted       uint64
	ClientsTerminated     uint64
	ProtocolViolations    uint64

	AvgCommitLatencyNs uint64
	UptimeNs           uint64
	LatencyHistogram   [numLatencyBuckets]uint64

	WriteIOPS float64
	ReadIOPS  float64
	ErrorRate float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		EventsWritten:         m.EventsWritten.Load(),
		EventsRead:            m.EventsRead.Load(),
		FragmentsWritten:      m.FragmentsWritten.Load(),
		FragmentsRead:         m.FragmentsRead.Load(),
		BytesWritten:          m.BytesWritten.Load(),
		BytesRead:             m.BytesRead.Load(),
		TransactionsCommitted: m.TransactionsCommitted.Load(),
		TransactionErrors:     m.TransactionErrors.Load(),
		ClientsAccepted:       m.ClientsAccepted.Load(),
		ClientsTerminated:     m.ClientsTerminated.Load(),
		ProtocolViolations:    m.ProtocolViolations.Load(),
	}

	commitCount := m.CommitCount.Load()
	if commitCount > 0 {
		snap.AvgCommitLatencyNs = m.TotalCommitLatencyNs.Load() / commitCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.WriteIOPS = float64(snap.EventsWritten) / uptimeSeconds
		snap.ReadIOPS = float64(snap.EventsRead) / uptimeSeconds
	}

	totalCommits := snap.TransactionsCommitted + snap.TransactionErrors
	if totalCommits > 0 {
		snap.ErrorRate = float64(snap.TransactionErrors) / float64(totalCommits) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyHistogramBuckets[i].Load()
	}
	return snap
}

// Reset zeroes all counters (test-only).
func (m *Metrics) Reset() {
	m.EventsWritten.Store(0)
	m.EventsRead.Store(0)
	m.FragmentsWritten.Store(0)
	m.FragmentsRead.Store(0)
	m.BytesWritten.Store(0)
	m.BytesRead.Store(0)
	m.TransactionsCommitted.Store(0)
	m.TransactionErrors.Store(0)
	m.ClientsAccepted.Store(0)
	m.ClientsTerminated.Store(0)
	m.ProtocolViolations.Store(0)
	m.TotalCommitLatencyNs.Store(0)
	m.CommitCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyHistogramBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection, mirrored from the teacher's
// ublk Observer so the client/server cores stay decoupled from any one
// metrics backend.
type Observer interface {
	ObserveWrite(fragments int, bytes uint64, latencyNs uint64, success bool)
	ObserveRead(fragments int, bytes uint64, success bool)
	ObserveClientAccepted()
	ObserveClientTerminated()
	ObserveProtocolViolation()
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveWrite(int, uint64, uint64, bool) {}
func (NoOpObserver) ObserveRead(int, uint64, bool)          {}
func (NoOpObserver) ObserveClientAccepted()                 {}
func (NoOpObserver) ObserveClientTerminated()                {}
func (NoOpObserver) ObserveProtocolViolation()                {}

// MetricsObserver implements Observer on top of Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveWrite(fragments int, bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordWrite(fragments, bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveRead(fragments int, bytes uint64, success bool) {
	o.metrics.RecordRead(fragments, bytes, success)
}

func (o *MetricsObserver) ObserveClientAccepted()    { o.metrics.RecordClientAccepted() }
func (o *MetricsObserver) ObserveClientTerminated()  { o.metrics.RecordClientTerminated() }
func (o *MetricsObserver) ObserveProtocolViolation() { o.metrics.RecordProtocolViolation() }

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
