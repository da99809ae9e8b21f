package observer

import (
	"fmt"
	"sync"

	"github.com/arloliu/tether/internal/logging"
	"github.com/arloliu/tether/internal/metrics"
	"github.com/arloliu/tether/types"
)

// Wildcard is the contract key whose observers receive every notification.
const Wildcard = "*"

// Observer receives failure notifications.
//
// Observers run synchronously on the goroutine that reported the failure,
// so they should return quickly.
type Observer interface {
	// OnFailure is called once per reported failure.
	OnFailure(n types.Notification)
}

// Func adapts a function to the Observer interface.
type Func func(n types.Notification)

// OnFailure calls f(n).
func (f Func) OnFailure(n types.Notification) {
	f(n)
}

type entry struct {
	id  uint64
	obs Observer
}

// Registry holds failure observers keyed by contract name.
//
// Observers for a contract are invoked in registration order. Registering
// the same observer twice delivers each notification to it twice. A
// panicking observer is recovered and does not prevent the remaining
// observers from running.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	observers map[string][]entry
	nextID    uint64

	logger  types.Logger
	metrics types.MetricsCollector
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report observer panics.
//
// Parameters:
//   - logger: Logger implementation
//
// Returns:
//   - Option: Configuration option
func WithLogger(logger types.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector used to count observer panics.
//
// Parameters:
//   - collector: Metrics collector implementation
//
// Returns:
//   - Option: Configuration option
func WithMetrics(collector types.MetricsCollector) Option {
	return func(r *Registry) {
		if collector != nil {
			r.metrics = collector
		}
	}
}

// NewRegistry creates an empty registry.
//
// Parameters:
//   - opts: Optional configuration
//
// Returns:
//   - *Registry: A new registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		observers: make(map[string][]entry),
		logger:    logging.NewNopLogger(),
		metrics:   metrics.NewNopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds an observer for the contract.
//
// Use Wildcard as the contract to observe every contract.
//
// Parameters:
//   - contract: Contract name, or Wildcard
//   - obs: The observer; nil is ignored
//
// Returns:
//   - func(): Removes this registration. Safe to call more than once.
func (r *Registry) Register(contract string, obs Observer) func() {
	if obs == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.observers[contract] = append(r.observers[contract], entry{id: id, obs: obs})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(contract, id) })
	}
}

// RegisterFunc is shorthand for Register(contract, Func(fn)).
func (r *Registry) RegisterFunc(contract string, fn func(types.Notification)) func() {
	if fn == nil {
		return func() {}
	}

	return r.Register(contract, Func(fn))
}

func (r *Registry) remove(contract string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.observers[contract]
	for i, e := range list {
		if e.id != id {
			continue
		}
		next := make([]entry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(r.observers, contract)
		} else {
			r.observers[contract] = next
		}

		return
	}
}

// Len returns the number of observers registered for the contract.
func (r *Registry) Len(contract string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.observers[contract])
}

// Notify delivers n to the observers of n.Contract, then to wildcard observers.
//
// The observer list is snapshotted before delivery, so observers may
// register or unregister others without deadlocking; such changes apply to
// the next notification.
//
// Parameters:
//   - n: The notification to deliver
func (r *Registry) Notify(n types.Notification) {
	r.mu.RLock()
	targets := make([]entry, 0, len(r.observers[n.Contract])+len(r.observers[Wildcard]))
	targets = append(targets, r.observers[n.Contract]...)
	if n.Contract != Wildcard {
		targets = append(targets, r.observers[Wildcard]...)
	}
	r.mu.RUnlock()

	for _, e := range targets {
		r.deliver(e.obs, n)
	}
}

func (r *Registry) deliver(obs Observer, n types.Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.IncObserverPanic(n.Contract)
			r.logger.Error("observer panicked",
				"contract", n.Contract,
				"invocation_id", n.InvocationID,
				"panic", fmt.Sprint(rec),
			)
		}
	}()

	obs.OnFailure(n)
}
