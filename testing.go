package seguro

import "sync"

// MockObserver is a call-tracking Observer double for tests that assert on
// *how many times* and *with what arguments* observation events fired,
// rather than on the derived counters NewMetrics produces. Mirrors the
// teacher's MockBackend call-tracking pattern (read/write/flush/sync call
// counts plus a Reset).
type MockObserver struct {
	mu sync.Mutex

	WriteCalls []ObservedWrite
	ReadCalls  []ObservedRead

	ClientsAccepted    int
	ClientsTerminated  int
	ProtocolViolations int
}

// ObservedWrite captures one ObserveWrite call's arguments.
type ObservedWrite struct {
	Fragments int
	Bytes     uint64
	LatencyNs uint64
	Success   bool
}

// ObservedRead captures one ObserveRead call's arguments.
type ObservedRead struct {
	Fragments int
	Bytes     uint64
	Success   bool
}

// NewMockObserver creates an empty MockObserver.
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

func (m *MockObserver) ObserveWrite(fragments int, bytes uint64, latencyNs uint64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls = append(m.WriteCalls, ObservedWrite{fragments, bytes, latencyNs, success})
}

func (m *MockObserver) ObserveRead(fragments int, bytes uint64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls = append(m.ReadCalls, ObservedRead{fragments, bytes, success})
}

func (m *MockObserver) ObserveClientAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClientsAccepted++
}

func (m *MockObserver) ObserveClientTerminated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClientsTerminated++
}

func (m *MockObserver) ObserveProtocolViolation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProtocolViolations++
}

// Reset clears all recorded calls and counters.
func (m *MockObserver) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls = nil
	m.ReadCalls = nil
	m.ClientsAccepted = 0
	m.ClientsTerminated = 0
	m.ProtocolViolations = 0
}

var _ Observer = (*MockObserver)(nil)
