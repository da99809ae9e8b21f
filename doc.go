// Package tether wraps connection-oriented RPC invocations with a guaranteed
// handle lifecycle.
//
// Every invocation creates a fresh connection handle, runs the caller's
// logic against the handle's typed contract, and leaves the handle in
// exactly one terminal state: Closed on success, Aborted on failure.
//
// # Key Features
//
//   - One handle per invocation, never shared or reused
//   - Failure classification into verdicts that drive the terminal action
//   - Default error handler that reports to an observer registry
//   - Synchronous and asynchronous, void and value-returning entry points
//   - Transports for gRPC, NATS, Twirp and CQL under transport/
//
// # Basic Usage
//
//	factory := grpctransport.NewFactory(pb.NewInventoryClient)
//	w, err := tether.New(factory,
//	    tether.WithEndpoint(tether.EndpointConfig{Address: "dns:///inventory:9090"}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w.OnFailure(func(n tether.Notification) {
//	    log.Printf("%s: %v", n.Contract, n.Err)
//	})
//
//	// Failures are reported and swallowed unless they must propagate.
//	err = w.Use(ctx, func(ctx context.Context, c pb.InventoryClient) error {
//	    _, err := c.Reserve(ctx, req)
//	    return err
//	})
//
//	// Value-returning calls always return the failure.
//	item, err := tether.Return(ctx, w, func(ctx context.Context, c pb.InventoryClient) (*pb.Item, error) {
//	    return c.Get(ctx, &pb.GetRequest{Id: id})
//	})
//
// # Verdicts
//
// When open, the callback, or close fails, the classifier picks a verdict:
//
//   - RethrowAfterAbort: report, abort, return the error (aborted, security)
//   - AbortAndReport: report, abort, swallow (faults, timeouts, unreachable)
//   - ReportOnly: report, swallow (disposed handle)
//   - Unclassified: return the error without reporting
//
// The handle is aborted by a deferred safety net whenever it did not close,
// including when the callback panics. Abort is never called after a
// successful close.
//
// # Configuration
//
// Configure adjusts the endpoint before the first invocation:
//
//	w.Configure(func(cfg *tether.EndpointConfig) {
//	    cfg.CallTimeout = 2 * time.Second
//	})
//
// After the first handle is created the configuration is frozen. A late
// Configure is not applied; it is logged and reported with
// types.ErrConfigureAfterUse.
//
// # Unmanaged Handles
//
// Proxy returns an opened handle that the caller must Close or Abort.
package tether
