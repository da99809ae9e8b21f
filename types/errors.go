package types

import "errors"

// Sentinel errors for connection failure kinds.
//
// Transports wrap raw errors in a *Failure; errors.Is against these
// sentinels matches the failure's kind.
var (
	// ErrConnectionAborted indicates the connection was torn down mid-call.
	ErrConnectionAborted = errors.New("tether: connection aborted")

	// ErrConnectionFaulted indicates the connection entered a broken state.
	ErrConnectionFaulted = errors.New("tether: connection faulted")

	// ErrSecurity indicates an authentication or authorization failure.
	ErrSecurity = errors.New("tether: security negotiation failed")

	// ErrActionNotSupported indicates the remote does not implement the operation.
	ErrActionNotSupported = errors.New("tether: action not supported")

	// ErrChannelTerminated indicates the remote closed the channel.
	ErrChannelTerminated = errors.New("tether: channel terminated")

	// ErrServerTooBusy indicates the remote refused the call due to load.
	ErrServerTooBusy = errors.New("tether: server too busy")

	// ErrEndpointNotFound indicates the endpoint could not be reached.
	ErrEndpointNotFound = errors.New("tether: endpoint not found")

	// ErrRemoteFault indicates an application-level fault from the remote.
	ErrRemoteFault = errors.New("tether: remote fault")

	// ErrCommunication indicates a generic transport failure.
	ErrCommunication = errors.New("tether: communication failure")

	// ErrTimeout indicates the transport deadline expired.
	ErrTimeout = errors.New("tether: operation timed out")

	// ErrHandleDisposed indicates the handle was used after disposal.
	ErrHandleDisposed = errors.New("tether: handle disposed")
)

// Sentinel errors for argument and configuration misuse.
var (
	// ErrNilFactory indicates that a nil connection factory was provided.
	ErrNilFactory = errors.New("tether: connection factory cannot be nil")

	// ErrNilCallback indicates that a nil callback was provided.
	ErrNilCallback = errors.New("tether: callback cannot be nil")

	// ErrNilErrorHandler indicates that a nil error handler was provided.
	ErrNilErrorHandler = errors.New("tether: error handler cannot be nil")

	// ErrNilArgument indicates that a required argument was nil.
	ErrNilArgument = errors.New("tether: argument cannot be nil")

	// ErrEmptyBindingName indicates the binding name resolved to an empty string.
	ErrEmptyBindingName = errors.New("tether: binding name cannot be empty")

	// ErrConfigureAfterUse indicates Configure was called after the first
	// handle was created. The mutation is not applied.
	ErrConfigureAfterUse = errors.New("tether: endpoint configured after first use")

	// ErrHandleCreate indicates the factory failed to create a handle.
	ErrHandleCreate = errors.New("tether: handle creation failed")

	// ErrHandleState indicates an operation was invalid for the handle's state.
	ErrHandleState = errors.New("tether: invalid handle state")
)

// RemoteFault is an application-level fault raised by the remote peer.
//
// It corresponds to a well-formed error reply: the connection itself is
// healthy, but the call failed on the other side.
type RemoteFault struct {
	// Code is the remote error code, if any.
	Code string

	// Reason is the human-readable fault message.
	Reason string

	// Detail carries optional structured detail.
	Detail string
}

// Error implements the error interface.
func (e *RemoteFault) Error() string {
	msg := "tether: remote fault"
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

// Is matches ErrRemoteFault.
func (e *RemoteFault) Is(target error) bool {
	return target == ErrRemoteFault
}
