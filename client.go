package tether

import (
	"github.com/arloliu/tether/observer"
	"github.com/arloliu/tether/policy"
	"github.com/arloliu/tether/types"
)

// Type aliases for convenience - re-export from types package.
type (
	Verdict          = types.Verdict
	HandleState      = types.HandleState
	FailureKind      = types.FailureKind
	EndpointConfig   = types.EndpointConfig
	Identity         = types.Identity
	Notification     = types.Notification
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
	Classifier       = policy.Classifier
	Observer         = observer.Observer
)

// Re-export verdict constants for convenience.
const (
	Unclassified      = types.Unclassified
	RethrowAfterAbort = types.RethrowAfterAbort
	AbortAndReport    = types.AbortAndReport
	ReportOnly        = types.ReportOnly
)

// Re-export handle state constants for convenience.
const (
	StateCreated = types.StateCreated
	StateOpen    = types.StateOpen
	StateClosed  = types.StateClosed
	StateAborted = types.StateAborted
	StateFaulted = types.StateFaulted
)
