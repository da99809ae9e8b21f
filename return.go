package tether

import (
	"context"

	"github.com/arloliu/tether/types"
)

// Result is the outcome of an asynchronous value-returning invocation.
type Result[T any] struct {
	Value T
	Err   error
}

// Return runs fn on a fresh handle and returns its value.
//
// Unlike Use, every failure is returned to the caller: a value-returning
// invocation has no meaningful fallback. Classified failures are still
// reported to the registry first.
//
// Parameters:
//   - ctx: Context passed to open, fn and close
//   - w: The wrapper
//   - fn: The caller's logic
//
// Returns:
//   - T: fn's value on success, the zero value on failure
//   - error: The failure, or nil
func Return[C, T any](ctx context.Context, w *Wrapper[C], fn ValueCallback[C, T]) (T, error) {
	if fn == nil {
		var zero T
		return zero, types.ErrNilCallback
	}

	return returnValue(ctx, w, fn, nil)
}

// ReturnWith is Return with a caller-supplied error handler.
//
// The handler runs before the terminal action; the failure is then returned.
func ReturnWith[C, T any](ctx context.Context, w *Wrapper[C], fn ValueCallback[C, T], onError ErrorHandler) (T, error) {
	var zero T
	if fn == nil {
		return zero, types.ErrNilCallback
	}
	if onError == nil {
		return zero, types.ErrNilErrorHandler
	}

	return returnValue(ctx, w, fn, onError)
}

// ReturnAsync runs Return on a new goroutine.
//
// The returned channel receives exactly one Result and is then closed.
func ReturnAsync[C, T any](ctx context.Context, w *Wrapper[C], fn ValueCallback[C, T]) <-chan Result[T] {
	done := make(chan Result[T], 1)
	go func() {
		defer close(done)
		v, err := Return(ctx, w, fn)
		done <- Result[T]{Value: v, Err: err}
	}()

	return done
}

// ReturnAsyncWith runs ReturnWith on a new goroutine.
func ReturnAsyncWith[C, T any](ctx context.Context, w *Wrapper[C], fn ValueCallback[C, T], onError ErrorHandler) <-chan Result[T] {
	done := make(chan Result[T], 1)
	go func() {
		defer close(done)
		v, err := ReturnWith(ctx, w, fn, onError)
		done <- Result[T]{Value: v, Err: err}
	}()

	return done
}

func returnValue[C, T any](ctx context.Context, w *Wrapper[C], fn ValueCallback[C, T], onError ErrorHandler) (T, error) {
	var result T
	err := w.run(ctx, func(ctx context.Context, client C) error {
		v, err := fn(ctx, client)
		if err != nil {
			return err
		}
		result = v

		return nil
	}, onError, true)
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
