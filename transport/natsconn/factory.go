package natsconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"slices"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/types"
)

// Endpoint metadata keys understood by the factory.
const (
	// MetaSubjectPrefix is prepended, with a dot, to every request subject.
	MetaSubjectPrefix = "subject_prefix"
	// MetaClientName sets the NATS connection name.
	MetaClientName = "client_name"
)

// Factory creates one *nats.Conn per handle.
//
// The connection is established in Open and drained in Close. Reconnects
// are disabled: a dropped connection faults the handle instead of hiding
// the failure.
type Factory[C any] struct {
	newClient func(*Client) C
	natsOpts  []nats.Option
}

// Compile-time assertions.
var (
	_ tether.ConnectionFactory[*Client] = (*Factory[*Client])(nil)
	_ types.FailureTranslator           = (*Factory[*Client])(nil)
)

// FactoryOption configures a Factory regardless of its contract type.
type FactoryOption struct {
	natsOpts []nats.Option
}

// WithNATSOptions appends nats.Options applied to every connection.
//
// Parameters:
//   - opts: NATS connection options
//
// Returns:
//   - FactoryOption: Configuration option
func WithNATSOptions(opts ...nats.Option) FactoryOption {
	return FactoryOption{natsOpts: opts}
}

// NewFactory creates a NATS connection factory.
//
// Parameters:
//   - newClient: Builds the contract from the per-handle request client
//   - opts: Optional configuration
//
// Returns:
//   - *Factory[C]: A new factory
func NewFactory[C any](newClient func(*Client) C, opts ...FactoryOption) *Factory[C] {
	f := &Factory[C]{newClient: newClient}
	for _, o := range opts {
		f.natsOpts = append(f.natsOpts, o.natsOpts...)
	}

	return f
}

// NewClientFactory creates a factory whose contract is the request client itself.
func NewClientFactory(opts ...FactoryOption) *Factory[*Client] {
	return NewFactory(func(c *Client) *Client { return c }, opts...)
}

// Create prepares a connection for the endpoint without dialing.
func (f *Factory[C]) Create(_ context.Context, cfg types.EndpointConfig) (tether.Handle[C], error) {
	url := cfg.Address
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name(cfg.Meta(MetaClientName, "tether-"+cfg.Name)),
		nats.NoReconnect(),
	}
	if cfg.OpenTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.OpenTimeout))
	}
	if cfg.Identity.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Identity.Username, cfg.Identity.Password))
	}
	if cfg.Identity.Token != "" {
		opts = append(opts, nats.Token(cfg.Identity.Token))
	}
	if cfg.Identity.TLS {
		opts = append(opts, nats.Secure(&tls.Config{
			ServerName: cfg.Identity.ServerName,
			MinVersion: tls.VersionTLS12,
		}))
	}
	opts = append(opts, f.natsOpts...)

	h := &handle[C]{
		url:       url,
		opts:      opts,
		cfg:       cfg,
		newClient: f.newClient,
		closed:    make(chan struct{}),
		state:     types.StateCreated,
	}

	return h, nil
}

// TranslateFailure implements types.FailureTranslator.
func (f *Factory[C]) TranslateFailure(err error) (types.FailureKind, bool) {
	return Translate(err)
}

type handle[C any] struct {
	mu        sync.Mutex
	url       string
	opts      []nats.Option
	cfg       types.EndpointConfig
	newClient func(*Client) C
	conn      *nats.Conn
	client    C
	closed    chan struct{}
	closeOnce sync.Once
	state     types.HandleState
}

func (h *handle[C]) Open(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != types.StateCreated {
		return fmt.Errorf("%w: open in state %s", types.ErrHandleState, h.state)
	}

	opts := append(slices.Clone(h.opts), nats.ClosedHandler(func(*nats.Conn) {
		h.closeOnce.Do(func() { close(h.closed) })
	}))
	conn, err := nats.Connect(h.url, opts...)
	if err != nil {
		return err
	}

	h.conn = conn
	h.client = h.newClient(newClient(conn, h.cfg))
	h.state = types.StateOpen

	return nil
}

func (h *handle[C]) Contract() C {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.client
}

// Close drains the connection and waits for it to close or ctx to expire.
func (h *handle[C]) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.state != types.StateOpen {
		state := h.state
		h.mu.Unlock()

		return fmt.Errorf("%w: close in state %s", types.ErrHandleState, state)
	}
	conn := h.conn
	h.mu.Unlock()

	if err := conn.Drain(); err != nil {
		return err
	}

	select {
	case <-h.closed:
	case <-ctx.Done():
		return types.NewFailure(types.KindTimeout, "close", ctx.Err())
	}

	h.mu.Lock()
	h.state = types.StateClosed
	h.mu.Unlock()

	return nil
}

func (h *handle[C]) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.Terminal() {
		return
	}
	if h.conn != nil {
		h.conn.Close()
	}
	h.state = types.StateAborted
}

func (h *handle[C]) State() types.HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == types.StateOpen && h.conn.IsClosed() {
		return types.StateFaulted
	}

	return h.state
}
