package journal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/tether/internal/logging"
	"github.com/arloliu/tether/types"
)

// Source is a journal that hands out records for processing.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Fetch returns up to batch pending entries. An empty result with a nil
	// error means no records are currently available.
	Fetch(ctx context.Context, batch int) ([]Entry, error)
}

// HandleFunc processes one journal record, e.g. by shipping it to an
// incident tracker. A non-nil error naks the entry for redelivery.
type HandleFunc func(ctx context.Context, r Record) error

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// BatchSize is the number of records fetched per poll.
	// Default: 100
	BatchSize int

	// PollInterval is the wait between polls when the journal is empty.
	// Default: 100ms
	PollInterval time.Duration

	// HandleTimeout bounds each HandleFunc call.
	// Default: 30 seconds
	HandleTimeout time.Duration

	// Logger receives handler failures. If nil, nothing is logged.
	Logger types.Logger
}

// DefaultWorkerConfig returns the default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:     100,
		PollInterval:  100 * time.Millisecond,
		HandleTimeout: 30 * time.Second,
	}
}

// WorkerOption configures a Worker.
type WorkerOption func(*WorkerConfig)

// WithBatchSize sets the number of records fetched per poll.
func WithBatchSize(n int) WorkerOption {
	return func(c *WorkerConfig) {
		c.BatchSize = n
	}
}

// WithPollInterval sets the polling interval when the journal is empty.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(c *WorkerConfig) {
		c.PollInterval = d
	}
}

// WithHandleTimeout sets the timeout for each handler call.
func WithHandleTimeout(d time.Duration) WorkerOption {
	return func(c *WorkerConfig) {
		c.HandleTimeout = d
	}
}

// WithWorkerLogger sets the logger for the worker.
func WithWorkerLogger(l types.Logger) WorkerOption {
	return func(c *WorkerConfig) {
		c.Logger = l
	}
}

// ErrWorkerRunning is returned by Start on a running worker.
var ErrWorkerRunning = errors.New("tether: journal worker already running")

// Worker drains a journal in the background and passes each record to a
// handler.
type Worker struct {
	config WorkerConfig
	source Source
	handle HandleFunc

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	handled atomic.Int64
}

// NewWorker creates a worker for source.
//
// Parameters:
//   - source: Journal to drain (MemoryJournal or NATSJournal)
//   - handle: Function processing each record
//   - opts: Optional configuration options
//
// Returns:
//   - *Worker: A new, stopped worker
func NewWorker(source Source, handle HandleFunc, opts ...WorkerOption) *Worker {
	config := DefaultWorkerConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}

	return &Worker{
		config: config,
		source: source,
		handle: handle,
	}
}

// Start begins processing in a background goroutine.
//
// Returns:
//   - error: ErrWorkerRunning if already started
func (w *Worker) Start() error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWorkerRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(ctx)

	return nil
}

// Stop stops the worker and waits for the current batch to finish.
func (w *Worker) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}

	w.cancel()
	w.wg.Wait()
}

// IsRunning returns whether the worker is running.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// Handled returns the number of records processed successfully.
func (w *Worker) Handled() int64 {
	return w.handled.Load()
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		entries, err := w.source.Fetch(ctx, w.config.BatchSize)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.config.Logger.Warn("journal fetch failed", "error", err)
		}

		progressed := false
		for _, e := range entries {
			if w.process(ctx, e) {
				progressed = true
			}
		}
		if progressed {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.config.PollInterval):
		}
	}
}

func (w *Worker) process(ctx context.Context, e Entry) bool {
	hctx, cancel := context.WithTimeout(ctx, w.config.HandleTimeout)
	defer cancel()

	if err := w.handle(hctx, e.Record); err != nil {
		w.config.Logger.Warn("journal handler failed",
			"contract", e.Record.Contract,
			"record_id", e.Record.ID.String(),
			"error", err,
		)
		_ = e.Nak()

		return false
	}

	if err := e.Ack(); err != nil {
		w.config.Logger.Warn("journal ack failed",
			"record_id", e.Record.ID.String(),
			"error", err,
		)

		return false
	}
	w.handled.Add(1)

	return true
}
