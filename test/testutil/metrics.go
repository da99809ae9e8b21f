package testutil

import (
	"sync"

	"github.com/arloliu/tether/types"
)

// TestMetricsCollector is a test implementation of types.MetricsCollector
// that tracks method calls for assertion in tests.
type TestMetricsCollector struct {
	mu sync.RWMutex

	InvocationTotal    map[string]int64
	InvocationDuration map[string][]float64
	Failures           map[string]map[types.Verdict]int64
	HandlesClosed      map[string]int64
	HandlesAborted     map[string]int64
	ObserverPanics     map[string]int64
	JournalDropped     map[string]int64
}

// Compile-time assertion that TestMetricsCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*TestMetricsCollector)(nil)

// NewTestMetricsCollector creates a new test metrics collector.
func NewTestMetricsCollector() *TestMetricsCollector {
	return &TestMetricsCollector{
		InvocationTotal:    make(map[string]int64),
		InvocationDuration: make(map[string][]float64),
		Failures:           make(map[string]map[types.Verdict]int64),
		HandlesClosed:      make(map[string]int64),
		HandlesAborted:     make(map[string]int64),
		ObserverPanics:     make(map[string]int64),
		JournalDropped:     make(map[string]int64),
	}
}

// IncInvocationTotal records an invocation.
func (m *TestMetricsCollector) IncInvocationTotal(contract string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvocationTotal[contract]++
}

// ObserveInvocationDuration records a duration.
func (m *TestMetricsCollector) ObserveInvocationDuration(contract string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvocationDuration[contract] = append(m.InvocationDuration[contract], seconds)
}

// IncFailure records a failure by verdict.
func (m *TestMetricsCollector) IncFailure(contract string, verdict types.Verdict) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Failures[contract] == nil {
		m.Failures[contract] = make(map[types.Verdict]int64)
	}
	m.Failures[contract][verdict]++
}

// IncHandleClosed records a graceful close.
func (m *TestMetricsCollector) IncHandleClosed(contract string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandlesClosed[contract]++
}

// IncHandleAborted records an abort.
func (m *TestMetricsCollector) IncHandleAborted(contract string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandlesAborted[contract]++
}

// IncObserverPanic records a recovered observer panic.
func (m *TestMetricsCollector) IncObserverPanic(contract string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ObserverPanics[contract]++
}

// IncJournalDropped records a dropped journal record.
func (m *TestMetricsCollector) IncJournalDropped(contract string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JournalDropped[contract]++
}

// GetInvocationTotal returns the invocation count for a contract.
func (m *TestMetricsCollector) GetInvocationTotal(contract string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.InvocationTotal[contract]
}

// GetFailures returns the failure count for a contract and verdict.
func (m *TestMetricsCollector) GetFailures(contract string, verdict types.Verdict) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Failures[contract][verdict]
}

// GetHandlesClosed returns the closed handle count for a contract.
func (m *TestMetricsCollector) GetHandlesClosed(contract string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.HandlesClosed[contract]
}

// GetHandlesAborted returns the aborted handle count for a contract.
func (m *TestMetricsCollector) GetHandlesAborted(contract string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.HandlesAborted[contract]
}

// GetJournalDropped returns the dropped journal record count for a contract.
func (m *TestMetricsCollector) GetJournalDropped(contract string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.JournalDropped[contract]
}
