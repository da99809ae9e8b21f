package twirpconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/types"
)

// HeaderPrefix marks endpoint metadata entries sent as HTTP request headers.
const HeaderPrefix = "header."

// Factory creates one *http.Client, with its own transport, per handle.
//
// newClient receives the endpoint address and the handle's client, which
// matches the shape of generated Twirp constructors:
//
//	factory := twirpconn.NewFactory(func(addr string, c *http.Client) pb.Inventory {
//	    return pb.NewInventoryProtobufClient(addr, c)
//	})
type Factory[C any] struct {
	newClient func(baseURL string, client *http.Client) C
}

// Compile-time assertions.
var (
	_ tether.ConnectionFactory[*JSONClient] = (*Factory[*JSONClient])(nil)
	_ types.FailureTranslator               = (*Factory[*JSONClient])(nil)
)

// NewFactory creates a Twirp connection factory.
//
// Parameters:
//   - newClient: Builds the contract from the base URL and HTTP client
//
// Returns:
//   - *Factory[C]: A new factory
func NewFactory[C any](newClient func(baseURL string, client *http.Client) C) *Factory[C] {
	return &Factory[C]{newClient: newClient}
}

// NewJSONFactory creates a factory whose contract is a JSONClient.
func NewJSONFactory() *Factory[*JSONClient] {
	return NewFactory(func(baseURL string, client *http.Client) *JSONClient {
		return NewJSONClient(baseURL, client)
	})
}

// Create builds an HTTP client dedicated to one handle.
func (f *Factory[C]) Create(_ context.Context, cfg types.EndpointConfig) (tether.Handle[C], error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("twirpconn: endpoint %q has no address", cfg.Name)
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("twirpconn: unexpected default transport %T", http.DefaultTransport)
	}
	transport := base.Clone()
	if cfg.Identity.TLS || cfg.Identity.ServerName != "" {
		transport.TLSClientConfig = &tls.Config{
			ServerName: cfg.Identity.ServerName,
			MinVersion: tls.VersionTLS12,
		}
	}
	if cfg.OpenTimeout > 0 {
		transport.TLSHandshakeTimeout = cfg.OpenTimeout
	}

	client := &http.Client{
		Transport: &headerTransport{next: transport, headers: requestHeaders(cfg)},
		Timeout:   cfg.CallTimeout,
	}

	return &handle[C]{
		transport: transport,
		client:    f.newClient(strings.TrimRight(cfg.Address, "/"), client),
		state:     types.StateCreated,
	}, nil
}

// TranslateFailure implements types.FailureTranslator.
func (f *Factory[C]) TranslateFailure(err error) (types.FailureKind, bool) {
	return Translate(err)
}

func requestHeaders(cfg types.EndpointConfig) http.Header {
	h := make(http.Header)
	for k, v := range cfg.Metadata {
		if name, ok := strings.CutPrefix(k, HeaderPrefix); ok && name != "" {
			h.Set(name, v)
		}
	}
	switch {
	case cfg.Identity.Token != "":
		h.Set("Authorization", "Bearer "+cfg.Identity.Token)
	case cfg.Identity.Username != "":
		r := &http.Request{Header: make(http.Header)}
		r.SetBasicAuth(cfg.Identity.Username, cfg.Identity.Password)
		h.Set("Authorization", r.Header.Get("Authorization"))
	}

	return h
}

type headerTransport struct {
	next    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.next.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	for k, vs := range t.headers {
		req.Header[k] = vs
	}

	return t.next.RoundTrip(req)
}

type handle[C any] struct {
	mu        sync.Mutex
	transport *http.Transport
	client    C
	state     types.HandleState
}

// Open marks the handle usable. Connections are dialed per request.
func (h *handle[C]) Open(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != types.StateCreated {
		return fmt.Errorf("%w: open in state %s", types.ErrHandleState, h.state)
	}
	h.state = types.StateOpen

	return nil
}

func (h *handle[C]) Contract() C {
	return h.client
}

// Close releases idle keep-alive connections.
func (h *handle[C]) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != types.StateOpen {
		return fmt.Errorf("%w: close in state %s", types.ErrHandleState, h.state)
	}
	h.transport.CloseIdleConnections()
	h.state = types.StateClosed

	return nil
}

func (h *handle[C]) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.Terminal() {
		return
	}
	h.transport.CloseIdleConnections()
	h.state = types.StateAborted
}

func (h *handle[C]) State() types.HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}
