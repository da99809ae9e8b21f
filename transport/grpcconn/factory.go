package grpcconn

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/types"
)

// HeaderPrefix marks endpoint metadata entries sent as outgoing gRPC metadata.
//
// An entry "header.x-tenant: a" is sent as "x-tenant: a" on every call.
const HeaderPrefix = "header."

// Factory creates one *grpc.ClientConn per handle.
//
// Factory implements types.FailureTranslator, so wrappers built on it
// classify gRPC status codes without further setup.
type Factory[C any] struct {
	newClient func(grpc.ClientConnInterface) C
	dialOpts  []grpc.DialOption
	creds     credentials.TransportCredentials
}

// Compile-time assertions.
var (
	_ tether.ConnectionFactory[any] = (*Factory[any])(nil)
	_ types.FailureTranslator       = (*Factory[any])(nil)
)

// Option configures a Factory.
type Option func(*options)

type options struct {
	dialOpts []grpc.DialOption
	creds    credentials.TransportCredentials
}

// WithDialOptions appends dial options applied to every connection.
//
// Parameters:
//   - opts: gRPC dial options, e.g. grpc.WithContextDialer
//
// Returns:
//   - Option: Configuration option
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) {
		o.dialOpts = append(o.dialOpts, opts...)
	}
}

// WithTransportCredentials overrides the credentials derived from the
// endpoint's Identity.
//
// Parameters:
//   - creds: Transport credentials
//
// Returns:
//   - Option: Configuration option
func WithTransportCredentials(creds credentials.TransportCredentials) Option {
	return func(o *options) {
		o.creds = creds
	}
}

// NewFactory creates a gRPC connection factory.
//
// Parameters:
//   - newClient: Generated client constructor, e.g. pb.NewInventoryClient
//   - opts: Optional configuration
//
// Returns:
//   - *Factory[C]: A new factory
func NewFactory[C any](newClient func(grpc.ClientConnInterface) C, opts ...Option) *Factory[C] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return &Factory[C]{
		newClient: newClient,
		dialOpts:  o.dialOpts,
		creds:     o.creds,
	}
}

// Create builds an idle connection for the endpoint.
func (f *Factory[C]) Create(_ context.Context, cfg types.EndpointConfig) (tether.Handle[C], error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("grpcconn: endpoint %q has no address", cfg.Name)
	}

	opts := make([]grpc.DialOption, 0, len(f.dialOpts)+3)
	opts = append(opts, grpc.WithTransportCredentials(f.transportCredentials(cfg)))
	if cfg.Identity.Token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(tokenCredentials{
			token:      cfg.Identity.Token,
			requireTLS: cfg.Identity.TLS,
		}))
	}
	opts = append(opts, grpc.WithChainUnaryInterceptor(callInterceptor(cfg)))
	opts = append(opts, f.dialOpts...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcconn: failed to create client for %s: %w", cfg.Address, err)
	}

	return &handle[C]{
		conn:   conn,
		client: f.newClient(conn),
		state:  types.StateCreated,
	}, nil
}

func (f *Factory[C]) transportCredentials(cfg types.EndpointConfig) credentials.TransportCredentials {
	if f.creds != nil {
		return f.creds
	}
	if cfg.Identity.TLS {
		return credentials.NewTLS(&tls.Config{
			ServerName: cfg.Identity.ServerName,
			MinVersion: tls.VersionTLS12,
		})
	}

	return insecure.NewCredentials()
}

// TranslateFailure implements types.FailureTranslator.
func (f *Factory[C]) TranslateFailure(err error) (types.FailureKind, bool) {
	return Translate(err)
}

// callInterceptor applies the endpoint's headers and call timeout.
func callInterceptor(cfg types.EndpointConfig) grpc.UnaryClientInterceptor {
	var pairs []string
	for k, v := range cfg.Metadata {
		if name, ok := strings.CutPrefix(k, HeaderPrefix); ok && name != "" {
			pairs = append(pairs, name, v)
		}
	}
	timeout := cfg.CallTimeout

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if len(pairs) > 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, pairs...)
		}
		if _, ok := ctx.Deadline(); !ok && timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

type tokenCredentials struct {
	token      string
	requireTLS bool
}

func (c tokenCredentials) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + c.token}, nil
}

func (c tokenCredentials) RequireTransportSecurity() bool {
	return c.requireTLS
}

// handle wraps a single client connection.
type handle[C any] struct {
	mu     sync.Mutex
	conn   *grpc.ClientConn
	client C
	state  types.HandleState
}

// Open starts connecting.
//
// When ctx carries a deadline, Open waits for the connection to become
// ready and fails fast on a transient failure. Without a deadline the
// connection is established lazily by the first call.
func (h *handle[C]) Open(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != types.StateCreated {
		return fmt.Errorf("%w: open in state %s", types.ErrHandleState, h.state)
	}

	h.conn.Connect()

	if _, ok := ctx.Deadline(); ok {
		if err := waitReady(ctx, h.conn); err != nil {
			return err
		}
	}
	h.state = types.StateOpen

	return nil
}

func waitReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		s := conn.GetState()
		switch s {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure:
			return types.NewFailure(types.KindEndpointNotFound, "open", fmt.Errorf("connection to %s failed", conn.Target()))
		case connectivity.Shutdown:
			return types.NewFailure(types.KindHandleDisposed, "open", errors.New("connection shut down"))
		case connectivity.Idle:
			conn.Connect()
		}

		if !conn.WaitForStateChange(ctx, s) {
			return types.NewFailure(types.KindTimeout, "open", ctx.Err())
		}
	}
}

func (h *handle[C]) Contract() C {
	return h.client
}

// Close closes the connection gracefully.
func (h *handle[C]) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != types.StateOpen {
		return fmt.Errorf("%w: close in state %s", types.ErrHandleState, h.state)
	}
	if err := h.conn.Close(); err != nil {
		return types.NewFailure(types.KindCommunication, "close", err)
	}
	h.state = types.StateClosed

	return nil
}

// Abort closes the connection, ignoring errors.
func (h *handle[C]) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.Terminal() {
		return
	}
	_ = h.conn.Close()
	h.state = types.StateAborted
}

// State reports Faulted when the connection was shut down underneath an
// open handle.
func (h *handle[C]) State() types.HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == types.StateOpen && h.conn.GetState() == connectivity.Shutdown {
		return types.StateFaulted
	}

	return h.state
}
