package tether

import (
	"time"

	"github.com/arloliu/tether/internal/logging"
	"github.com/arloliu/tether/internal/metrics"
	"github.com/arloliu/tether/observer"
	"github.com/arloliu/tether/types"
)

// Clock returns the current time. It stamps failure notifications.
//
// The default clock is time.Now.
type Clock func() time.Time

// DefaultClock returns the current wall-clock time.
func DefaultClock() time.Time {
	return time.Now()
}

// WrapperConfig holds configuration for a Wrapper.
type WrapperConfig struct {
	// BindingName selects the endpoint. When unset, the endpoint's Name is
	// used, then the contract type name.
	BindingName    string
	bindingNameSet bool

	Endpoint   types.EndpointConfig
	Classifier Classifier
	Registry   *observer.Registry
	Journals   []observer.Observer
	Clock      Clock
	Metrics    MetricsCollector
	Logger     types.Logger
}

// DefaultConfig returns a WrapperConfig with sensible defaults.
//
// Defaults:
//   - Classifier: nil (policy.NewDefaultClassifier with the factory's translator)
//   - Registry: nil (a registry owned by the wrapper)
//
// Returns:
//   - *WrapperConfig: Configuration with default settings
func DefaultConfig() *WrapperConfig {
	return &WrapperConfig{
		Clock:   DefaultClock,
		Metrics: metrics.NewNopMetrics(),
		Logger:  logging.NewNopLogger(),
	}
}

// Option configures a WrapperConfig.
type Option func(*WrapperConfig)

// WithBindingName sets the binding name used to resolve the endpoint.
//
// An empty name is rejected by New with types.ErrEmptyBindingName.
//
// Parameters:
//   - name: The binding name
//
// Returns:
//   - Option: Configuration option
func WithBindingName(name string) Option {
	return func(c *WrapperConfig) {
		c.BindingName = name
		c.bindingNameSet = true
	}
}

// WithEndpoint sets the base endpoint configuration.
//
// The configuration is copied. Configure may still adjust it before the
// first handle is created.
//
// Parameters:
//   - cfg: Endpoint configuration, e.g. from endpoint.Set.Get
//
// Returns:
//   - Option: Configuration option
func WithEndpoint(cfg types.EndpointConfig) Option {
	return func(c *WrapperConfig) {
		c.Endpoint = cfg.Clone()
	}
}

// WithClassifier replaces the default failure classifier.
//
// A custom classifier does not receive the factory's failure translator.
//
// Parameters:
//   - classifier: The classifier to use
//
// Returns:
//   - Option: Configuration option
func WithClassifier(classifier Classifier) Option {
	return func(c *WrapperConfig) {
		c.Classifier = classifier
	}
}

// WithRegistry shares an observer registry between wrappers.
//
// By default every wrapper owns a private registry.
//
// Parameters:
//   - registry: The registry to report failures to
//
// Returns:
//   - Option: Configuration option
func WithRegistry(registry *observer.Registry) Option {
	return func(c *WrapperConfig) {
		c.Registry = registry
	}
}

// WithJournal records every reported failure of this wrapper's contract.
//
// The journal is registered as an observer on the wrapper's registry.
//
// Parameters:
//   - journal: A failure journal, e.g. journal.NewMemoryJournal()
//
// Returns:
//   - Option: Configuration option
func WithJournal(journal observer.Observer) Option {
	return func(c *WrapperConfig) {
		if journal != nil {
			c.Journals = append(c.Journals, journal)
		}
	}
}

// WithClock sets the time source for failure notifications.
//
// Parameters:
//   - clock: Function returning the current time
//
// Returns:
//   - Option: Configuration option
func WithClock(clock Clock) Option {
	return func(c *WrapperConfig) {
		c.Clock = clock
	}
}

// WithMetrics sets the metrics collector.
//
// Parameters:
//   - collector: Metrics collector implementation
//
// Returns:
//   - Option: Configuration option
func WithMetrics(collector MetricsCollector) Option {
	return func(c *WrapperConfig) {
		c.Metrics = collector
	}
}

// WithLogger sets the logger.
//
// Parameters:
//   - logger: Logger implementation (*slog.Logger satisfies it)
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger types.Logger) Option {
	return func(c *WrapperConfig) {
		c.Logger = logger
	}
}
