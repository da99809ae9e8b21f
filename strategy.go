package tether

import (
	"context"

	"github.com/arloliu/tether/types"
)

// ConnectionFactory creates connection handles bound to contract C.
//
// A factory is read-mostly and shared by every invocation of a wrapper.
// Implementations MUST be safe for concurrent use from multiple goroutines.
//
// Factories may additionally implement types.FailureTranslator to teach the
// default classifier their transport's error vocabulary.
type ConnectionFactory[C any] interface {
	// Create builds a new handle in the Created state.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - cfg: A private copy of the endpoint configuration
	//
	// Returns:
	//   - Handle[C]: A new, unopened handle
	//   - error: Non-nil if the handle could not be built
	Create(ctx context.Context, cfg EndpointConfig) (Handle[C], error)
}

// Handle is a single connection bound to contract C.
//
// State machine: Created -> Open -> {Closed | Aborted | Faulted}. A handle is
// never reused across invocations and never shared between concurrent
// invocations, so implementations need not be safe for concurrent use.
type Handle[C any] interface {
	// Open transitions Created -> Open.
	Open(ctx context.Context) error

	// Contract returns the typed client bound to this connection.
	Contract() C

	// Close gracefully transitions Open -> Closed.
	Close(ctx context.Context) error

	// Abort forcibly tears the connection down. It is best-effort, must not
	// block for long, and is safe to call in any state.
	Abort()

	// State returns the current lifecycle state.
	State() HandleState
}

// FactoryFunc adapts a function to the ConnectionFactory interface.
type FactoryFunc[C any] func(ctx context.Context, cfg EndpointConfig) (Handle[C], error)

// Create calls f(ctx, cfg).
func (f FactoryFunc[C]) Create(ctx context.Context, cfg EndpointConfig) (Handle[C], error) {
	return f(ctx, cfg)
}

// ErrorHandler receives a classified invocation failure.
//
// It runs on the invoking goroutine after classification and before the
// handle's terminal action.
type ErrorHandler func(err error)

// Callback is the caller's logic for a void invocation.
type Callback[C any] func(ctx context.Context, client C) error

// ValueCallback is the caller's logic for a value-returning invocation.
type ValueCallback[C, T any] func(ctx context.Context, client C) (T, error)

// resolveKind returns the failure kind using the classifier when it can tell.
func resolveKind(classifier Classifier, err error) types.FailureKind {
	if k, ok := classifier.(interface{ Kind(error) types.FailureKind }); ok {
		return k.Kind(err)
	}

	return types.KindOf(err)
}
