package endpoint

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/tether/internal/logging"
	"github.com/arloliu/tether/types"
)

// WatcherConfig holds configuration for a Watcher.
type WatcherConfig struct {
	// Key is the NATS KV key holding the endpoint YAML document.
	// Default: "tether.endpoints"
	Key string

	// PollInterval is the fallback polling interval if watch fails.
	// Default: 5 seconds
	PollInterval time.Duration

	// FetchTimeout bounds each KV read.
	// Default: 10 seconds
	FetchTimeout time.Duration

	// Logger receives parse failures. If nil, nothing is logged.
	Logger types.Logger
}

// DefaultWatcherConfig returns a WatcherConfig with sensible defaults.
//
// Returns:
//   - WatcherConfig: Default configuration
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Key:          "tether.endpoints",
		PollInterval: 5 * time.Second,
		FetchTimeout: 10 * time.Second,
	}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*WatcherConfig)

// WithKey sets the NATS KV key to watch.
//
// Parameters:
//   - key: The key name (e.g., "platform.endpoints")
//
// Returns:
//   - WatcherOption: Configuration option
func WithKey(key string) WatcherOption {
	return func(c *WatcherConfig) {
		c.Key = key
	}
}

// WithPollInterval sets the fallback polling interval.
//
// Parameters:
//   - d: Polling interval duration
//
// Returns:
//   - WatcherOption: Configuration option
func WithPollInterval(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.PollInterval = d
	}
}

// WithFetchTimeout sets the timeout for each KV read.
func WithFetchTimeout(d time.Duration) WatcherOption {
	return func(c *WatcherConfig) {
		c.FetchTimeout = d
	}
}

// WithWatcherLogger sets the logger for parse failures.
func WithWatcherLogger(l types.Logger) WatcherOption {
	return func(c *WatcherConfig) {
		c.Logger = l
	}
}

// Watcher publishes endpoint sets stored under a NATS KV key.
//
// Wrappers freeze their endpoint on first use, so a new Set is meant for
// building new wrappers; running wrappers keep the endpoint they started with.
// A revision that fails to parse is logged and skipped, and Current keeps
// returning the last valid set.
type Watcher struct {
	kv     jetstream.KeyValue
	config WatcherConfig
	logger types.Logger

	mu           sync.RWMutex
	current      *Set
	revision     uint64
	watchStarted bool
	closed       bool

	updates   chan *Set
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher creates a watcher over a NATS KV bucket.
//
// Parameters:
//   - kv: A NATS JetStream KeyValue store
//   - opts: Optional configuration options
//
// Returns:
//   - *Watcher: A new watcher instance
//   - error: Error if kv is nil
//
// Example:
//
//	kv, _ := js.KeyValue(ctx, "platform-config")
//	watcher, _ := endpoint.NewWatcher(kv, endpoint.WithKey("platform.endpoints"))
//	for set := range watcher.Watch(ctx) {
//	    rebuildWrappers(set)
//	}
func NewWatcher(kv jetstream.KeyValue, opts ...WatcherOption) (*Watcher, error) {
	if kv == nil {
		return nil, errors.New("tether/endpoint: KeyValue store is nil")
	}

	config := DefaultWatcherConfig()
	for _, opt := range opts {
		opt(&config)
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Watcher{
		kv:      kv,
		config:  config,
		logger:  logger,
		updates: make(chan *Set, 1),
		done:    make(chan struct{}),
	}, nil
}

// Config returns the watcher configuration.
func (w *Watcher) Config() WatcherConfig {
	return w.config
}

// Current returns the last valid endpoint set, or nil if none was seen.
func (w *Watcher) Current() *Set {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.current
}

// Watch returns a channel that receives every new valid endpoint set.
//
// Multiple calls return the same channel; only the first call's context
// controls the watch lifecycle. The channel is closed when Close is called
// or the context is done. A slow reader only sees the newest set.
//
// Parameters:
//   - ctx: Context for cancellation (only used on first call)
//
// Returns:
//   - <-chan *Set: Channel of endpoint sets
func (w *Watcher) Watch(ctx context.Context) <-chan *Set {
	w.mu.Lock()
	if w.watchStarted {
		w.mu.Unlock()

		return w.updates
	}
	w.watchStarted = true
	w.mu.Unlock()

	go w.watchLoop(ctx)

	return w.updates
}

// Close stops the watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.closeOnce.Do(func() { close(w.updates) })

	w.fetch(ctx)

	kw, err := w.kv.Watch(ctx, w.config.Key, jetstream.UpdatesOnly())
	if err != nil {
		w.pollLoop(ctx)
		return
	}
	defer func() { _ = kw.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case entry, ok := <-kw.Updates():
			if !ok {
				w.pollLoop(ctx)
				return
			}
			if entry == nil {
				continue
			}
			w.process(entry)
		}
	}
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.fetch(ctx)
		}
	}
}

func (w *Watcher) fetch(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, w.config.FetchTimeout)
	defer cancel()

	entry, err := w.kv.Get(fetchCtx, w.config.Key)
	if err != nil {
		if !errors.Is(err, jetstream.ErrKeyNotFound) {
			w.logger.Warn("endpoint watcher fetch failed", "key", w.config.Key, "error", err)
		}

		return
	}

	w.process(entry)
}

// process ignores deletes so a removed key never tears down known endpoints.
func (w *Watcher) process(entry jetstream.KeyValueEntry) {
	if entry.Operation() != jetstream.KeyValuePut {
		return
	}

	w.mu.RLock()
	seen := entry.Revision() <= w.revision
	w.mu.RUnlock()
	if seen {
		return
	}

	set, err := Parse(entry.Value())
	if err != nil {
		w.logger.Warn("endpoint watcher ignored invalid document",
			"key", w.config.Key,
			"revision", entry.Revision(),
			"error", err,
		)

		return
	}

	w.mu.Lock()
	w.current = set
	w.revision = entry.Revision()
	w.mu.Unlock()

	// Keep only the newest set buffered.
	select {
	case w.updates <- set:
	default:
		select {
		case <-w.updates:
		default:
		}
		select {
		case w.updates <- set:
		default:
		}
	}
}
