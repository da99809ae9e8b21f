// Package types provides shared types and error definitions for the tether library.
//
// This is a leaf package with zero tether imports to prevent import cycles.
// All packages in tether can safely import this package.
//
// # Verdicts
//
// A Verdict is the classifier's decision for a failed invocation:
//
//	const (
//	    Unclassified      Verdict = iota // propagate, no error handler
//	    RethrowAfterAbort                // report, abort, propagate
//	    AbortAndReport                   // report, abort, swallow
//	    ReportOnly                       // report, swallow
//	)
//
// # Failures
//
// Transports wrap raw errors in *Failure carrying a FailureKind. KindOf
// resolves the kind of any error, falling back to standard library network
// errors when no explicit kind is present. Each kind has a sentinel:
//
//   - ErrConnectionAborted, ErrConnectionFaulted
//   - ErrSecurity, ErrActionNotSupported, ErrChannelTerminated
//   - ErrServerTooBusy, ErrEndpointNotFound, ErrRemoteFault
//   - ErrCommunication, ErrTimeout, ErrHandleDisposed
//
// # Endpoints
//
// EndpointConfig describes a remote endpoint. It is copied into every handle
// and never mutated after the first handle is created.
package types
