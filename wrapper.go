package tether

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arloliu/tether/internal/logging"
	"github.com/arloliu/tether/internal/metrics"
	"github.com/arloliu/tether/observer"
	"github.com/arloliu/tether/policy"
	"github.com/arloliu/tether/types"
)

// Wrapper runs invocations against contract C with a guaranteed handle lifecycle.
//
// Every invocation gets a fresh handle from the factory, runs the caller's
// callback, and leaves the handle either Closed (success) or Aborted
// (failure). Failures are classified and routed to an error handler; the
// default handler reports to the wrapper's observer registry and swallows
// the error.
//
// Wrapper is safe for concurrent use. The endpoint configuration is frozen
// when the first handle is created.
type Wrapper[C any] struct {
	factory    ConnectionFactory[C]
	contract   string
	classifier Classifier
	registry   *observer.Registry
	clock      Clock
	metrics    MetricsCollector
	logger     types.Logger

	mu       sync.Mutex
	endpoint types.EndpointConfig
	frozen   atomic.Bool
}

// New creates a wrapper around the factory.
//
// The binding name resolves, in order, from WithBindingName, the Name of
// the endpoint given with WithEndpoint, then the contract type name.
//
// Parameters:
//   - factory: Creates one handle per invocation
//   - opts: Optional configuration
//
// Returns:
//   - *Wrapper[C]: A new wrapper
//   - error: types.ErrNilFactory or types.ErrEmptyBindingName
func New[C any](factory ConnectionFactory[C], opts ...Option) (*Wrapper[C], error) {
	if factory == nil {
		return nil, types.ErrNilFactory
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	contract := contractName[C]()

	binding := cfg.BindingName
	if !cfg.bindingNameSet {
		binding = cfg.Endpoint.Name
		if binding == "" {
			binding = contract
		}
	}
	if binding == "" {
		return nil, types.ErrEmptyBindingName
	}

	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNopMetrics()
	}
	if cfg.Clock == nil {
		cfg.Clock = DefaultClock
	}

	classifier := cfg.Classifier
	if classifier == nil {
		dc := policy.NewDefaultClassifier()
		if t, ok := factory.(types.FailureTranslator); ok {
			dc.AddTranslator(t)
		}
		classifier = dc
	}

	registry := cfg.Registry
	if registry == nil {
		registry = observer.NewRegistry(
			observer.WithLogger(cfg.Logger),
			observer.WithMetrics(cfg.Metrics),
		)
	}
	for _, j := range cfg.Journals {
		registry.Register(contract, j)
	}

	endpoint := cfg.Endpoint.Clone()
	endpoint.Name = binding

	return &Wrapper[C]{
		factory:    factory,
		contract:   contract,
		classifier: classifier,
		registry:   registry,
		clock:      cfg.Clock,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		endpoint:   endpoint,
	}, nil
}

func contractName[C any]() string {
	t := reflect.TypeFor[C]()
	if name := t.Name(); name != "" {
		return name
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}

	return t.String()
}

// Contract returns the contract type name used for metrics and observers.
func (w *Wrapper[C]) Contract() string {
	return w.contract
}

// Binding returns the current binding name.
func (w *Wrapper[C]) Binding() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.endpoint.Name
}

// Endpoint returns a copy of the current endpoint configuration.
func (w *Wrapper[C]) Endpoint() types.EndpointConfig {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.endpoint.Clone()
}

// Registry returns the observer registry failures are reported to.
func (w *Wrapper[C]) Registry() *observer.Registry {
	return w.registry
}

// Frozen reports whether the endpoint configuration can no longer change.
func (w *Wrapper[C]) Frozen() bool {
	return w.frozen.Load()
}

// OnFailure registers an observer for this wrapper's contract.
//
// Parameters:
//   - fn: Called with every reported failure
//
// Returns:
//   - func(): Removes the observer
func (w *Wrapper[C]) OnFailure(fn func(Notification)) func() {
	return w.registry.RegisterFunc(w.contract, fn)
}

// Configure applies a one-time mutation to the endpoint configuration.
//
// Configure must be called before the first invocation. A call after the
// first handle was created, or with a nil mutator, is a logic error: the
// mutation is not applied, the misuse is logged, and a notification
// carrying types.ErrConfigureAfterUse or types.ErrNilArgument is reported
// to the registry.
//
// Parameters:
//   - mutator: Adjusts the endpoint configuration in place
//
// Returns:
//   - *Wrapper[C]: The wrapper, for chaining
func (w *Wrapper[C]) Configure(mutator func(*EndpointConfig)) *Wrapper[C] {
	if mutator == nil {
		w.misuse(fmt.Errorf("configure: %w", types.ErrNilArgument))
		return w
	}

	if !w.apply(mutator) {
		w.misuse(types.ErrConfigureAfterUse)
	}

	return w
}

// apply runs mutator on a copy and swaps it in, so a panicking mutator
// leaves the endpoint and the lock untouched.
func (w *Wrapper[C]) apply(mutator func(*EndpointConfig)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frozen.Load() {
		return false
	}

	cfg := w.endpoint.Clone()
	mutator(&cfg)
	w.endpoint = cfg

	return true
}

// Proxy returns an opened handle that is not managed by the wrapper.
//
// The caller owns the handle's lifecycle and must Close or Abort it.
//
// Parameters:
//   - ctx: Context for create and open
//
// Returns:
//   - Handle[C]: An open handle
//   - error: Creation or open failure; on open failure the handle is aborted
func (w *Wrapper[C]) Proxy(ctx context.Context) (Handle[C], error) {
	cfg, handle, err := w.acquire(ctx)
	if err != nil {
		return nil, err
	}

	openCtx, cancel := withTimeout(ctx, cfg.OpenTimeout)
	defer cancel()
	if err := handle.Open(openCtx); err != nil {
		handle.Abort()
		return nil, err
	}

	return handle, nil
}

// Use runs fn on a fresh handle with the default error handler.
//
// Classified failures are reported to the registry and swallowed unless the
// verdict is RethrowAfterAbort. Unclassified failures are returned.
//
// Parameters:
//   - ctx: Context passed to open, fn and close
//   - fn: The caller's logic
//
// Returns:
//   - error: The propagated failure, or nil
func (w *Wrapper[C]) Use(ctx context.Context, fn Callback[C]) error {
	if fn == nil {
		return types.ErrNilCallback
	}

	return w.run(ctx, fn, nil, false)
}

// UseWith runs fn on a fresh handle with a caller-supplied error handler.
//
// Parameters:
//   - ctx: Context passed to open, fn and close
//   - fn: The caller's logic
//   - onError: Receives classified failures before the terminal action
//
// Returns:
//   - error: The propagated failure, or nil
func (w *Wrapper[C]) UseWith(ctx context.Context, fn Callback[C], onError ErrorHandler) error {
	if fn == nil {
		return types.ErrNilCallback
	}
	if onError == nil {
		return types.ErrNilErrorHandler
	}

	return w.run(ctx, fn, onError, false)
}

// UseAsync runs Use on a new goroutine.
//
// The returned channel receives exactly one value and is then closed.
func (w *Wrapper[C]) UseAsync(ctx context.Context, fn Callback[C]) <-chan error {
	return async(func() error { return w.Use(ctx, fn) })
}

// UseAsyncWith runs UseWith on a new goroutine.
//
// The returned channel receives exactly one value and is then closed.
func (w *Wrapper[C]) UseAsyncWith(ctx context.Context, fn Callback[C], onError ErrorHandler) <-chan error {
	return async(func() error { return w.UseWith(ctx, fn, onError) })
}

func async(run func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- run()
	}()

	return done
}

// acquire creates a handle from a private copy of the endpoint.
//
// The endpoint freezes when the first handle is created. Until then the
// lock is held across Create, so a concurrent Configure either lands before
// the first handle or is rejected; a failed Create leaves it configurable.
func (w *Wrapper[C]) acquire(ctx context.Context) (types.EndpointConfig, Handle[C], error) {
	w.mu.Lock()
	if w.endpoint.Name == "" {
		w.mu.Unlock()
		return types.EndpointConfig{}, nil, types.ErrEmptyBindingName
	}
	cfg := w.endpoint.Clone()

	if w.frozen.Load() {
		w.mu.Unlock()
		handle, err := w.create(ctx, cfg)

		return cfg, handle, err
	}
	defer w.mu.Unlock()

	handle, err := w.create(ctx, cfg)
	if err != nil {
		return cfg, nil, err
	}
	w.frozen.Store(true)

	return cfg, handle, nil
}

func (w *Wrapper[C]) create(ctx context.Context, cfg types.EndpointConfig) (Handle[C], error) {
	handle, err := w.factory.Create(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrHandleCreate, err)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: factory returned nil handle", types.ErrHandleCreate)
	}

	return handle, nil
}

func (w *Wrapper[C]) misuse(err error) {
	binding := w.Binding()
	w.logger.Error("wrapper misuse",
		"contract", w.contract,
		"binding", binding,
		"error", err,
	)
	w.registry.Notify(types.Notification{
		Contract: w.contract,
		Binding:  binding,
		Verdict:  types.Unclassified,
		Kind:     types.KindUnknown,
		Err:      err,
		Time:     w.clock(),
	})
}

func newInvocationID() string {
	return uuid.NewString()
}
