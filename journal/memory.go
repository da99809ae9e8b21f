package journal

import (
	"context"
	"sync/atomic"

	"github.com/arloliu/tether/internal/metrics"
	"github.com/arloliu/tether/observer"
	"github.com/arloliu/tether/types"
)

// DefaultCapacity is the default number of records a MemoryJournal holds.
const DefaultCapacity = 1024

// MemoryJournal keeps failure records in a bounded in-memory queue.
//
// # Durability Warning
//
// Records are LOST on process restart. Use NATSJournal when records must
// survive the process.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Close marks the journal closed
// without closing the underlying channel, so concurrent OnFailure calls
// during shutdown cannot panic.
type MemoryJournal struct {
	queue   chan Record
	closed  atomic.Bool
	metrics types.MetricsCollector
}

// Compile-time assertions.
var (
	_ observer.Observer = (*MemoryJournal)(nil)
	_ Source            = (*MemoryJournal)(nil)
)

// MemoryOption configures a MemoryJournal.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	capacity int
	metrics  types.MetricsCollector
}

// WithCapacity sets the maximum number of pending records.
//
// Parameters:
//   - n: Queue capacity (default: 1024)
//
// Returns:
//   - MemoryOption: Configuration option
func WithCapacity(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.capacity = n
	}
}

// WithMemoryMetrics sets the collector that counts dropped records.
func WithMemoryMetrics(m types.MetricsCollector) MemoryOption {
	return func(o *memoryOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// NewMemoryJournal creates an in-memory journal.
//
// Parameters:
//   - opts: Optional configuration options
//
// Returns:
//   - *MemoryJournal: A new memory journal
func NewMemoryJournal(opts ...MemoryOption) *MemoryJournal {
	o := memoryOptions{
		capacity: DefaultCapacity,
		metrics:  metrics.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 1 {
		o.capacity = 1
	}

	return &MemoryJournal{
		queue:   make(chan Record, o.capacity),
		metrics: o.metrics,
	}
}

// OnFailure implements observer.Observer by appending a record built from n.
// A full or closed journal drops the record.
func (m *MemoryJournal) OnFailure(n types.Notification) {
	_ = m.Append(NewRecord(n))
}

// Append adds a record without blocking.
//
// Parameters:
//   - r: The record to append
//
// Returns:
//   - error: nil on success, ErrJournalFull at capacity, ErrJournalClosed after Close
func (m *MemoryJournal) Append(r Record) error {
	if m.closed.Load() {
		m.metrics.IncJournalDropped(r.Contract)
		return ErrJournalClosed
	}

	select {
	case m.queue <- r:
		return nil
	default:
		m.metrics.IncJournalDropped(r.Contract)
		return ErrJournalFull
	}
}

// Next blocks until a record is available or ctx is done.
//
// Returns:
//   - Record: The oldest pending record
//   - bool: false if ctx is done, or the journal is closed and empty
func (m *MemoryJournal) Next(ctx context.Context) (Record, bool) {
	if m.closed.Load() {
		return m.TryNext()
	}

	select {
	case <-ctx.Done():
		return Record{}, false
	case r := <-m.queue:
		return r, true
	}
}

// TryNext returns the oldest pending record without blocking.
func (m *MemoryJournal) TryNext() (Record, bool) {
	select {
	case r := <-m.queue:
		return r, true
	default:
		return Record{}, false
	}
}

// Fetch implements Source. It returns up to batch pending records without
// blocking. Entries need no acknowledgement; Nak puts the record back.
func (m *MemoryJournal) Fetch(_ context.Context, batch int) ([]Entry, error) {
	if m.closed.Load() && m.Len() == 0 {
		return nil, ErrJournalClosed
	}

	var entries []Entry
	for len(entries) < batch {
		r, ok := m.TryNext()
		if !ok {
			break
		}
		entries = append(entries, Entry{
			Record:  r,
			nakFunc: func() error { return m.Append(r) },
		})
	}

	return entries, nil
}

// Drain returns all pending records, oldest first, and empties the journal.
func (m *MemoryJournal) Drain() []Record {
	var records []Record
	for {
		r, ok := m.TryNext()
		if !ok {
			return records
		}
		records = append(records, r)
	}
}

// Len returns the number of pending records.
func (m *MemoryJournal) Len() int {
	return len(m.queue)
}

// Cap returns the journal capacity.
func (m *MemoryJournal) Cap() int {
	return cap(m.queue)
}

// Close marks the journal closed. Pending records remain readable.
//
// Close is safe to call multiple times.
func (m *MemoryJournal) Close() {
	m.closed.Store(true)
}

// IsClosed reports whether Close has been called.
func (m *MemoryJournal) IsClosed() bool {
	return m.closed.Load()
}
