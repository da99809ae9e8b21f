package types

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// FailureKind categorizes a connection or call failure.
type FailureKind int

const (
	// KindUnknown is an error that does not belong to any known category.
	KindUnknown FailureKind = iota
	KindConnectionAborted
	KindConnectionFaulted
	KindSecurity
	KindActionNotSupported
	KindChannelTerminated
	KindServerTooBusy
	KindEndpointNotFound
	KindRemoteFault
	KindCommunication
	KindTimeout
	KindHandleDisposed
)

var kindNames = [...]string{
	KindUnknown:            "unknown",
	KindConnectionAborted:  "connection_aborted",
	KindConnectionFaulted:  "connection_faulted",
	KindSecurity:           "security",
	KindActionNotSupported: "action_not_supported",
	KindChannelTerminated:  "channel_terminated",
	KindServerTooBusy:      "server_too_busy",
	KindEndpointNotFound:   "endpoint_not_found",
	KindRemoteFault:        "remote_fault",
	KindCommunication:      "communication",
	KindTimeout:            "timeout",
	KindHandleDisposed:     "handle_disposed",
}

var kindSentinels = [...]error{
	KindConnectionAborted:  ErrConnectionAborted,
	KindConnectionFaulted:  ErrConnectionFaulted,
	KindSecurity:           ErrSecurity,
	KindActionNotSupported: ErrActionNotSupported,
	KindChannelTerminated:  ErrChannelTerminated,
	KindServerTooBusy:      ErrServerTooBusy,
	KindEndpointNotFound:   ErrEndpointNotFound,
	KindRemoteFault:        ErrRemoteFault,
	KindCommunication:      ErrCommunication,
	KindTimeout:            ErrTimeout,
	KindHandleDisposed:     ErrHandleDisposed,
}

// String returns the snake_case kind name.
func (k FailureKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}

	return kindNames[k]
}

// Sentinel returns the sentinel error for the kind, or nil for KindUnknown.
func (k FailureKind) Sentinel() error {
	if k <= KindUnknown || int(k) >= len(kindSentinels) {
		return nil
	}

	return kindSentinels[k]
}

// Failure wraps a transport error with its resolved kind.
type Failure struct {
	// Kind is the failure category.
	Kind FailureKind

	// Op is the handle operation that failed ("open", "call", "close").
	Op string

	// Cause is the raw transport error.
	Cause error
}

// NewFailure wraps cause as a failure of the given kind.
//
// Parameters:
//   - kind: Failure category
//   - op: Operation that failed, may be empty
//   - cause: Underlying error, may be nil
//
// Returns:
//   - *Failure: The wrapped failure
func NewFailure(kind FailureKind, op string, cause error) *Failure {
	return &Failure{Kind: kind, Op: op, Cause: cause}
}

// Error implements the error interface.
func (e *Failure) Error() string {
	msg := "tether: " + e.Kind.String()
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Failure) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel error of the failure's kind.
func (e *Failure) Is(target error) bool {
	s := e.Kind.Sentinel()
	return s != nil && target == s
}

// FailureTranslator maps transport-specific errors to failure kinds.
//
// Connection factories may implement this optional interface. The wrapper
// detects it at construction and hands it to the classifier, so raw
// transport errors are categorized without the transport wrapping them.
type FailureTranslator interface {
	// TranslateFailure returns the kind for err and true, or false if the
	// error is not recognized by this transport.
	TranslateFailure(err error) (FailureKind, bool)
}

// KindOf resolves the failure kind of err using the generic rules.
//
// Resolution order: an explicit *Failure in the chain, a *RemoteFault,
// kind sentinels, then standard library network and I/O errors.
// context.Canceled is deliberately left as KindUnknown.
//
// Parameters:
//   - err: The error to inspect
//
// Returns:
//   - FailureKind: The resolved kind, KindUnknown if not recognized
func KindOf(err error) FailureKind {
	if err == nil {
		return KindUnknown
	}

	var f *Failure
	if errors.As(err, &f) && f.Kind != KindUnknown {
		return f.Kind
	}

	var rf *RemoteFault
	if errors.As(err, &rf) {
		return KindRemoteFault
	}

	for k := KindConnectionAborted; int(k) < len(kindSentinels); k++ {
		if errors.Is(err, kindSentinels[k]) {
			return k
		}
	}

	return stdlibKind(err)
}

func stdlibKind(err error) FailureKind {
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	if errors.Is(err, net.ErrClosed) {
		return KindHandleDisposed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}

	var (
		recordErr   tls.RecordHeaderError
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	if errors.As(err, &recordErr) || errors.As(err, &certErr) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) || errors.As(err, &invalidCert) {
		return KindSecurity
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindEndpointNotFound
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return KindEndpointNotFound
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return KindChannelTerminated
	case errors.Is(err, syscall.ECONNABORTED):
		return KindConnectionAborted
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindCommunication
	}

	return KindUnknown
}
