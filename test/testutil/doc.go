// Package testutil provides test utilities and mock implementations for tether testing.
//
// # Mock Implementations
//
//   - [MockFactory]: Mock implementation of tether.ConnectionFactory
//   - [MockHandle]: Mock implementation of tether.Handle recording state transitions
//   - [MockService]: A contract whose GetData returns "Success" and GetError faults
//   - [MockObserver]: Records failure notifications
//   - [TestMetricsCollector]: Records metric calls
//
// # Usage
//
//	factory, _ := testutil.NewMockServiceFactory()
//	w, _ := tether.New(factory)
//
//	err := w.Use(ctx, func(ctx context.Context, svc testutil.MockService) error {
//	    _, err := svc.GetError(ctx)
//	    return err
//	})
//	// err == nil: remote faults are reported and swallowed
//	// factory.Last().State() == tether.StateAborted
//
// # Integration Test Helpers
//
//   - StartNATSServer: Starts an embedded NATS server
//   - StartEmbeddedNATS: Starts an embedded NATS server and returns JetStream
package testutil
