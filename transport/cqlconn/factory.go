package cqlconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/types"
)

// Endpoint metadata keys understood by the factory.
const (
	MetaKeyspace    = "keyspace"
	MetaConsistency = "consistency"
	MetaDatacenter  = "local_dc"
)

// Factory creates one gocql session per handle.
//
// The endpoint address is a comma separated list of contact points.
type Factory[C any] struct {
	newClient func(*gocql.Session) C
	configure []func(*gocql.ClusterConfig)
}

// FactoryOption configures a Factory.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	configure []func(*gocql.ClusterConfig)
}

// WithClusterConfig adjusts the cluster configuration built for each handle.
//
// The function runs after endpoint settings are applied, so it can
// override them.
//
// Parameters:
//   - fn: Mutator for the per-handle *gocql.ClusterConfig
//
// Returns:
//   - FactoryOption: Configuration option
func WithClusterConfig(fn func(*gocql.ClusterConfig)) FactoryOption {
	return func(o *factoryOptions) {
		if fn != nil {
			o.configure = append(o.configure, fn)
		}
	}
}

// Compile-time assertions.
var (
	_ tether.ConnectionFactory[*gocql.Session] = (*Factory[*gocql.Session])(nil)
	_ types.FailureTranslator                  = (*Factory[*gocql.Session])(nil)
)

// NewFactory creates a CQL connection factory.
//
// Parameters:
//   - newClient: Builds the contract from an open session
//   - opts: Factory options
//
// Returns:
//   - *Factory[C]: A new factory
func NewFactory[C any](newClient func(*gocql.Session) C, opts ...FactoryOption) *Factory[C] {
	var o factoryOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &Factory[C]{newClient: newClient, configure: o.configure}
}

// NewSessionFactory creates a factory whose contract is the session itself.
func NewSessionFactory(opts ...FactoryOption) *Factory[*gocql.Session] {
	return NewFactory(func(s *gocql.Session) *gocql.Session { return s }, opts...)
}

// Create builds the cluster configuration for one handle. No connection is
// made until Open.
func (f *Factory[C]) Create(_ context.Context, cfg types.EndpointConfig) (tether.Handle[C], error) {
	cluster, err := f.clusterConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &handle[C]{
		factory: f,
		cluster: cluster,
		state:   types.StateCreated,
	}, nil
}

// TranslateFailure implements types.FailureTranslator.
func (f *Factory[C]) TranslateFailure(err error) (types.FailureKind, bool) {
	return Translate(err)
}

func (f *Factory[C]) clusterConfig(cfg types.EndpointConfig) (*gocql.ClusterConfig, error) {
	var hosts []string
	for h := range strings.SplitSeq(cfg.Address, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("cqlconn: endpoint %q has no contact points", cfg.Name)
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = cfg.Meta(MetaKeyspace, "")
	if cfg.OpenTimeout > 0 {
		cluster.ConnectTimeout = cfg.OpenTimeout
	}
	if cfg.CallTimeout > 0 {
		cluster.Timeout = cfg.CallTimeout
	}
	if c := cfg.Meta(MetaConsistency, ""); c != "" {
		consistency, err := gocql.ParseConsistencyWrapper(c)
		if err != nil {
			return nil, fmt.Errorf("cqlconn: endpoint %q: %w", cfg.Name, err)
		}
		cluster.Consistency = consistency
	}
	if dc := cfg.Meta(MetaDatacenter, ""); dc != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.DCAwareRoundRobinPolicy(dc))
	}
	if cfg.Identity.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Identity.Username,
			Password: cfg.Identity.Password,
		}
	}
	if cfg.Identity.TLS {
		cluster.SslOpts = &gocql.SslOptions{
			Config: &tls.Config{
				ServerName: cfg.Identity.ServerName,
				MinVersion: tls.VersionTLS12,
			},
			EnableHostVerification: true,
		}
	}

	for _, fn := range f.configure {
		fn(cluster)
	}

	return cluster, nil
}

type handle[C any] struct {
	factory *Factory[C]
	cluster *gocql.ClusterConfig

	mu      sync.Mutex
	session *gocql.Session
	client  C
	state   types.HandleState
}

// Open creates the session. A context deadline shorter than the configured
// connect timeout replaces it.
func (h *handle[C]) Open(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != types.StateCreated {
		return fmt.Errorf("%w: open in state %s", types.ErrHandleState, h.state)
	}
	if err := ctx.Err(); err != nil {
		return types.NewFailure(types.KindTimeout, "open", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < h.cluster.ConnectTimeout {
			h.cluster.ConnectTimeout = remaining
		}
	}

	session, err := h.cluster.CreateSession()
	if err != nil {
		return err
	}
	h.session = session
	h.client = h.factory.newClient(session)
	h.state = types.StateOpen

	return nil
}

func (h *handle[C]) Contract() C {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.client
}

// Close shuts the session down. gocql has no graceful drain, so Close and
// Abort differ only in the resulting state.
func (h *handle[C]) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != types.StateOpen {
		return fmt.Errorf("%w: close in state %s", types.ErrHandleState, h.state)
	}
	if h.session.Closed() {
		h.state = types.StateFaulted
		return types.NewFailure(types.KindConnectionFaulted, "close", gocql.ErrSessionClosed)
	}
	h.session.Close()
	h.state = types.StateClosed

	return nil
}

func (h *handle[C]) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.Terminal() {
		return
	}
	if h.session != nil {
		h.session.Close()
	}
	h.state = types.StateAborted
}

func (h *handle[C]) State() types.HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == types.StateOpen && h.session.Closed() {
		return types.StateFaulted
	}

	return h.state
}
