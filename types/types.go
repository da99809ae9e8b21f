// Package types provides shared types and errors for the tether library.
//
// This is a "leaf" package with no imports from other tether packages,
// allowing it to be imported by any package without causing import cycles.
package types

import (
	"maps"
	"time"
)

// Verdict is the decision the classifier returns for a failed invocation.
//
// The zero value is Unclassified: the failure is not recognized and is
// propagated to the caller without invoking the error handler.
type Verdict int

const (
	// Unclassified means the failure is not a recognized connection failure.
	Unclassified Verdict = iota
	// RethrowAfterAbort reports the failure, aborts the handle and returns the error.
	RethrowAfterAbort
	// AbortAndReport reports the failure, aborts the handle and swallows the error.
	AbortAndReport
	// ReportOnly reports the failure without an explicit abort.
	ReportOnly
)

// String returns a stable name suitable for metric labels.
func (v Verdict) String() string {
	switch v {
	case RethrowAfterAbort:
		return "rethrow_after_abort"
	case AbortAndReport:
		return "abort_and_report"
	case ReportOnly:
		return "report_only"
	default:
		return "unclassified"
	}
}

// Propagates reports whether the error is returned to the caller.
func (v Verdict) Propagates() bool {
	return v == RethrowAfterAbort || v == Unclassified
}

// Reports reports whether the error handler runs for this verdict.
func (v Verdict) Reports() bool {
	return v != Unclassified
}

// HandleState is the lifecycle state of a connection handle.
type HandleState int32

const (
	// StateCreated is the state of a handle that has not been opened.
	StateCreated HandleState = iota
	// StateOpen is the state of a handle ready to carry calls.
	StateOpen
	// StateClosed is the terminal state after a graceful close.
	StateClosed
	// StateAborted is the terminal state after a forced teardown.
	StateAborted
	// StateFaulted marks a handle whose transport broke. It is always
	// resolved to StateAborted by the runner.
	StateFaulted
)

// String returns the lowercase state name.
func (s HandleState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateAborted:
		return "aborted"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s HandleState) Terminal() bool {
	return s == StateClosed || s == StateAborted
}

// Identity carries credentials and TLS hints for an endpoint.
type Identity struct {
	// Username and Password are used by transports with basic auth.
	Username string
	Password string

	// Token is a bearer or user token.
	Token string

	// TLS enables transport security.
	TLS bool

	// ServerName overrides the TLS server name.
	ServerName string
}

// EndpointConfig describes how to reach one remote endpoint.
//
// An EndpointConfig is frozen once the first handle is created from it.
// Each handle receives its own copy, obtained through Clone.
type EndpointConfig struct {
	// Name is the binding name used to resolve this endpoint.
	Name string

	// Address is the transport-specific target, e.g. "dns:///svc:443" or
	// "nats://127.0.0.1:4222".
	Address string

	// Binding names the transport, e.g. "grpc", "nats", "twirp", "cql".
	Binding string

	// Identity holds credentials.
	Identity Identity

	// OpenTimeout bounds Handle.Open. Zero means no extra bound.
	OpenTimeout time.Duration

	// CloseTimeout bounds a graceful Handle.Close.
	CloseTimeout time.Duration

	// CallTimeout is the per-call deadline hint applied by transports.
	CallTimeout time.Duration

	// Metadata carries transport-specific extras (headers, subjects, keyspace).
	Metadata map[string]string
}

// Clone returns a deep copy of the configuration.
func (c EndpointConfig) Clone() EndpointConfig {
	out := c
	if c.Metadata != nil {
		out.Metadata = maps.Clone(c.Metadata)
	}

	return out
}

// Meta returns the metadata value for key, or def when unset.
func (c EndpointConfig) Meta(key, def string) string {
	if v, ok := c.Metadata[key]; ok && v != "" {
		return v
	}

	return def
}

// Notification describes a reported invocation failure.
type Notification struct {
	// Contract is the contract type name the failure belongs to.
	Contract string

	// Binding is the endpoint binding name used by the invocation.
	Binding string

	// InvocationID correlates logs, metrics and journal records.
	InvocationID string

	// Verdict is the classifier's decision.
	Verdict Verdict

	// Kind is the resolved failure kind.
	Kind FailureKind

	// Err is the underlying failure.
	Err error

	// Time is when the failure was reported.
	Time time.Time
}
