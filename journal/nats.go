package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/tether/internal/logging"
	"github.com/arloliu/tether/internal/metrics"
	"github.com/arloliu/tether/observer"
	"github.com/arloliu/tether/types"
)

// NATSConfig configures the NATS JetStream journal.
type NATSConfig struct {
	// StreamName is the JetStream stream holding failure records.
	// Default: "tether-failures"
	StreamName string

	// SubjectPrefix is the subject prefix. Records are published to
	// "{SubjectPrefix}.{contract}" with dots in the contract name
	// replaced by underscores.
	// Default: "tether.failures"
	SubjectPrefix string

	// ConsumerName is the durable consumer used by Fetch.
	// Default: "tether-journal"
	ConsumerName string

	// MaxAge is the maximum age of records in the stream.
	// Default: 72 hours
	MaxAge time.Duration

	// MaxMsgs is the maximum number of records in the stream.
	// Default: 1,000,000
	MaxMsgs int64

	// Replicas is the number of stream replicas.
	// Default: 1
	Replicas int

	// PublishTimeout bounds each publish from OnFailure.
	// Default: 5 seconds
	PublishTimeout time.Duration

	// FetchWait is how long Fetch waits for records to arrive.
	// Default: 1 second
	FetchWait time.Duration

	// MaxDeliver is the number of delivery attempts before a record is dropped.
	// Default: 5
	MaxDeliver int

	Logger  types.Logger
	Metrics types.MetricsCollector
}

// DefaultNATSConfig returns the default configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		StreamName:     "tether-failures",
		SubjectPrefix:  "tether.failures",
		ConsumerName:   "tether-journal",
		MaxAge:         72 * time.Hour,
		MaxMsgs:        1_000_000,
		Replicas:       1,
		PublishTimeout: 5 * time.Second,
		FetchWait:      time.Second,
		MaxDeliver:     5,
	}
}

// NATSOption configures a NATSJournal.
type NATSOption func(*NATSConfig)

// WithStreamName sets the JetStream stream name.
//
// Parameters:
//   - name: Stream name
//
// Returns:
//   - NATSOption: Configuration option
func WithStreamName(name string) NATSOption {
	return func(c *NATSConfig) {
		c.StreamName = name
	}
}

// WithSubjectPrefix sets the subject prefix for records.
//
// Parameters:
//   - prefix: Subject prefix
//
// Returns:
//   - NATSOption: Configuration option
func WithSubjectPrefix(prefix string) NATSOption {
	return func(c *NATSConfig) {
		c.SubjectPrefix = prefix
	}
}

// WithConsumerName sets the durable consumer name used by Fetch.
func WithConsumerName(name string) NATSOption {
	return func(c *NATSConfig) {
		c.ConsumerName = name
	}
}

// WithMaxAge sets the maximum age of records in the stream.
//
// Parameters:
//   - d: Maximum age duration
//
// Returns:
//   - NATSOption: Configuration option
func WithMaxAge(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.MaxAge = d
	}
}

// WithPublishTimeout sets the timeout for publishing a record.
//
// Parameters:
//   - d: Publish timeout duration
//
// Returns:
//   - NATSOption: Configuration option
func WithPublishTimeout(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.PublishTimeout = d
	}
}

// WithFetchWait sets how long Fetch waits for records.
func WithFetchWait(d time.Duration) NATSOption {
	return func(c *NATSConfig) {
		c.FetchWait = d
	}
}

// WithNATSLogger sets the logger for publish failures.
func WithNATSLogger(l types.Logger) NATSOption {
	return func(c *NATSConfig) {
		c.Logger = l
	}
}

// WithNATSMetrics sets the collector that counts dropped records.
func WithNATSMetrics(m types.MetricsCollector) NATSOption {
	return func(c *NATSConfig) {
		c.Metrics = m
	}
}

// NATSJournal stores failure records in a NATS JetStream stream.
//
// Records survive process crashes and can be consumed by any number of
// processes sharing the durable consumer. The stream uses work-queue
// retention, so an acknowledged record is removed.
type NATSJournal struct {
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	config   NATSConfig

	mu     sync.RWMutex
	closed bool
}

// Compile-time assertions.
var (
	_ observer.Observer = (*NATSJournal)(nil)
	_ Source            = (*NATSJournal)(nil)
)

// NewNATSJournal creates or updates the journal stream and its consumer.
//
// Parameters:
//   - ctx: Context bounding stream and consumer setup
//   - js: A JetStream context (created via jetstream.New(conn))
//   - opts: Optional configuration options
//
// Returns:
//   - *NATSJournal: A new NATS journal
//   - error: Error if stream or consumer creation fails
//
// Example:
//
//	nc, _ := nats.Connect(nats.DefaultURL)
//	js, _ := jetstream.New(nc)
//	j, _ := journal.NewNATSJournal(ctx, js)
//	w, _ := tether.New[Inventory](factory, tether.WithJournal(j))
func NewNATSJournal(ctx context.Context, js jetstream.JetStream, opts ...NATSOption) (*NATSJournal, error) {
	if js == nil {
		return nil, errors.New("tether: JetStream context is nil")
	}

	config := DefaultNATSConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewNopMetrics()
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        config.StreamName,
		Description: "tether failure journal",
		Subjects:    []string{config.SubjectPrefix + ".>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      config.MaxAge,
		MaxMsgs:     config.MaxMsgs,
		Replicas:    config.Replicas,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
	})
	if err != nil {
		return nil, fmt.Errorf("tether: failed to create/update journal stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          config.ConsumerName,
		Durable:       config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    config.MaxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("tether: failed to create journal consumer: %w", err)
	}

	return &NATSJournal{
		js:       js,
		stream:   stream,
		consumer: consumer,
		config:   config,
	}, nil
}

// Subject returns the subject records of contract are published to.
func (n *NATSJournal) Subject(contract string) string {
	return n.config.SubjectPrefix + "." + subjectToken(contract)
}

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		default:
			return r
		}
	}, s)
}

// OnFailure implements observer.Observer by publishing a record built
// from the notification. Publish failures are logged and counted as drops.
func (n *NATSJournal) OnFailure(notification types.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), n.config.PublishTimeout)
	defer cancel()

	record := NewRecord(notification)
	if err := n.Append(ctx, record); err != nil {
		n.config.Metrics.IncJournalDropped(record.Contract)
		n.config.Logger.Warn("failed to journal failure",
			"contract", record.Contract,
			"invocation_id", record.InvocationID,
			"error", err,
		)
	}
}

// Append publishes a record.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - r: The record to publish
//
// Returns:
//   - error: nil once JetStream has stored the record
func (n *NATSJournal) Append(ctx context.Context, r Record) error {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return ErrJournalClosed
	}

	data, err := r.MarshalMsg(nil)
	if err != nil {
		return fmt.Errorf("tether: failed to marshal journal record: %w", err)
	}

	if _, err := n.js.Publish(ctx, n.Subject(r.Contract), data, jetstream.WithMsgID(r.ID.String())); err != nil {
		return fmt.Errorf("tether: failed to publish journal record: %w", err)
	}

	return nil
}

// Fetch retrieves up to batch records. Each entry must be acknowledged
// once processed; unacknowledged entries are redelivered.
//
// Malformed records are terminated so they are not redelivered.
//
// Parameters:
//   - ctx: Context for cancellation
//   - batch: Maximum number of records to fetch
//
// Returns:
//   - []Entry: Fetched entries, possibly empty
//   - error: Error if the fetch fails
func (n *NATSJournal) Fetch(ctx context.Context, batch int) ([]Entry, error) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return nil, ErrJournalClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wait := n.config.FetchWait
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
	}
	if wait <= 0 {
		return nil, ctx.Err()
	}

	msgs, err := n.consumer.Fetch(batch, jetstream.FetchMaxWait(wait))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, jetstream.ErrNoMessages) {
			return nil, nil
		}

		return nil, fmt.Errorf("tether: failed to fetch journal records: %w", err)
	}

	entries := make([]Entry, 0, batch)
	for msg := range msgs.Messages() {
		var r Record
		if _, err := r.UnmarshalMsg(msg.Data()); err != nil {
			n.config.Logger.Warn("dropping malformed journal record",
				"subject", msg.Subject(),
				"error", err,
			)
			_ = msg.Term()

			continue
		}

		entries = append(entries, Entry{
			Record:  r,
			ackFunc: msg.Ack,
			nakFunc: msg.Nak,
		})
	}

	if err := msgs.Error(); err != nil && !errors.Is(err, jetstream.ErrNoMessages) {
		return entries, fmt.Errorf("tether: error during journal fetch: %w", err)
	}

	return entries, nil
}

// Pending returns the number of records stored in the stream.
func (n *NATSJournal) Pending(ctx context.Context) (int, error) {
	info, err := n.stream.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("tether: failed to get journal stream info: %w", err)
	}

	return int(info.State.Msgs), nil //nolint:gosec // stream size is capped by MaxMsgs
}

// Close marks the journal closed. The stream and its records are kept.
//
// Close is safe to call multiple times.
func (n *NATSJournal) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}
