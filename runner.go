package tether

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/tether/types"
)

// outcome is the result of one attempt: either the handle closed
// gracefully, or the attempt failed with a classified error.
type outcome struct {
	closed  bool
	op      string
	verdict types.Verdict
	kind    types.FailureKind
	err     error
}

// invocation carries the per-call identity and endpoint copy.
type invocation struct {
	id       string
	endpoint types.EndpointConfig
}

// run executes the lifecycle protocol for one invocation.
//
// Order: create, open, callback, close. On failure: classify, invoke the
// error handler, then the terminal action. The deferred safety net aborts
// the handle exactly once whenever it did not close, including when fn or
// the error handler panics.
//
// When propagate is set, every failure is returned after reporting.
func (w *Wrapper[C]) run(ctx context.Context, fn Callback[C], onError ErrorHandler, propagate bool) error {
	cfg, handle, err := w.acquire(ctx)
	if errors.Is(err, types.ErrEmptyBindingName) {
		return err
	}

	inv := invocation{id: newInvocationID(), endpoint: cfg}
	w.metrics.IncInvocationTotal(w.contract)
	if err != nil {
		w.logger.Error("handle creation failed",
			"contract", w.contract,
			"binding", cfg.Name,
			"invocation_id", inv.id,
			"error", err,
		)

		return err
	}

	start := time.Now()

	var closed, aborted bool
	abort := func() {
		if aborted {
			return
		}
		aborted = true
		handle.Abort()
		w.metrics.IncHandleAborted(w.contract)
	}
	defer func() {
		if !closed {
			abort()
		}
		w.metrics.ObserveInvocationDuration(w.contract, time.Since(start).Seconds())
	}()

	out := w.attempt(ctx, handle, fn, cfg)
	if out.closed {
		closed = true
		w.metrics.IncHandleClosed(w.contract)
		w.logger.Debug("invocation completed",
			"contract", w.contract,
			"binding", cfg.Name,
			"invocation_id", inv.id,
		)

		return nil
	}

	w.metrics.IncFailure(w.contract, out.verdict)

	if !out.verdict.Reports() {
		w.logger.Error("invocation failed with unclassified error",
			"contract", w.contract,
			"binding", cfg.Name,
			"invocation_id", inv.id,
			"op", out.op,
			"error", out.err,
		)

		return out.err
	}

	w.logger.Warn("invocation failed",
		"contract", w.contract,
		"binding", cfg.Name,
		"invocation_id", inv.id,
		"op", out.op,
		"verdict", out.verdict.String(),
		"kind", out.kind.String(),
		"error", out.err,
	)

	if onError != nil {
		onError(out.err)
	} else {
		w.report(inv, out)
	}

	// ReportOnly has no explicit abort; the safety net resolves the handle.
	if out.verdict != types.ReportOnly {
		abort()
	}

	if propagate || out.verdict.Propagates() {
		return out.err
	}

	return nil
}

// attempt opens the handle, runs fn and closes the handle.
func (w *Wrapper[C]) attempt(ctx context.Context, handle Handle[C], fn Callback[C], cfg types.EndpointConfig) outcome {
	openCtx, cancelOpen := withTimeout(ctx, cfg.OpenTimeout)
	err := handle.Open(openCtx)
	cancelOpen()
	if err != nil {
		return w.failed("open", err)
	}

	if err := fn(ctx, handle.Contract()); err != nil {
		return w.failed("call", err)
	}

	if handle.State() == types.StateFaulted {
		return w.failed("call", types.NewFailure(types.KindConnectionFaulted, "call", nil))
	}

	closeCtx, cancelClose := withTimeout(ctx, cfg.CloseTimeout)
	err = handle.Close(closeCtx)
	cancelClose()
	if err != nil {
		return w.failed("close", err)
	}

	return outcome{closed: true}
}

func (w *Wrapper[C]) failed(op string, err error) outcome {
	return outcome{
		op:      op,
		verdict: w.classifier.Classify(err),
		kind:    resolveKind(w.classifier, err),
		err:     err,
	}
}

// report is the default error handler: notify observers and swallow.
func (w *Wrapper[C]) report(inv invocation, out outcome) {
	w.registry.Notify(types.Notification{
		Contract:     w.contract,
		Binding:      inv.endpoint.Name,
		InvocationID: inv.id,
		Verdict:      out.verdict,
		Kind:         out.kind,
		Err:          out.err,
		Time:         w.clock(),
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}
