package cqlconn

import (
	"errors"
	"strings"

	"github.com/gocql/gocql"

	"github.com/arloliu/tether/types"
)

var cqlKinds = []struct {
	err  error
	kind types.FailureKind
}{
	{gocql.ErrNoHosts, types.KindEndpointNotFound},
	{gocql.ErrNoConnectionsStarted, types.KindEndpointNotFound},
	{gocql.ErrNoConnections, types.KindConnectionFaulted},
	{gocql.ErrSessionClosed, types.KindHandleDisposed},
	{gocql.ErrConnectionClosed, types.KindChannelTerminated},
	{gocql.ErrTimeoutNoResponse, types.KindTimeout},
	{gocql.ErrTooManyTimeouts, types.KindServerTooBusy},
	{gocql.ErrUnsupported, types.KindActionNotSupported},
	{gocql.ErrTooManyStmts, types.KindActionNotSupported},
	{gocql.ErrKeyspaceDoesNotExist, types.KindRemoteFault},
	{gocql.ErrNoKeyspace, types.KindRemoteFault},
}

// gocql flattens dial failures into session creation messages.
var openPatterns = []struct {
	pattern string
	kind    types.FailureKind
}{
	{"connection refused", types.KindEndpointNotFound},
	{"no such host", types.KindEndpointNotFound},
	{"no connections were made", types.KindEndpointNotFound},
	{"i/o timeout", types.KindTimeout},
	{"authentication", types.KindSecurity},
	{"tls:", types.KindSecurity},
	{"x509:", types.KindSecurity},
}

// Translate maps gocql errors to failure kinds.
//
// Server error frames are classified by their protocol error code; driver
// sentinels by identity. Session creation failures, which gocql reports as
// flattened strings, fall back to message patterns.
//
// Parameters:
//   - err: The error to translate
//
// Returns:
//   - types.FailureKind: The failure kind
//   - bool: true if err was recognized
func Translate(err error) (types.FailureKind, bool) {
	if err == nil {
		return types.KindUnknown, false
	}

	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		return requestErrorKind(reqErr.Code())
	}

	for _, e := range cqlKinds {
		if errors.Is(err, e.err) {
			return e.kind, true
		}
	}

	if !strings.Contains(err.Error(), "gocql: unable to create session") {
		return types.KindUnknown, false
	}

	msg := strings.ToLower(err.Error())
	for _, p := range openPatterns {
		if strings.Contains(msg, p.pattern) {
			return p.kind, true
		}
	}

	return types.KindCommunication, true
}

func requestErrorKind(code int) (types.FailureKind, bool) {
	switch code {
	case gocql.ErrCodeCredentials, gocql.ErrCodeUnauthorized:
		return types.KindSecurity, true
	case gocql.ErrCodeUnavailable, gocql.ErrCodeBootstrapping:
		return types.KindEndpointNotFound, true
	case gocql.ErrCodeOverloaded:
		return types.KindServerTooBusy, true
	case gocql.ErrCodeWriteTimeout, gocql.ErrCodeReadTimeout:
		return types.KindTimeout, true
	case gocql.ErrCodeProtocol:
		return types.KindCommunication, true
	case gocql.ErrCodeServer, gocql.ErrCodeTruncate, gocql.ErrCodeReadFailure,
		gocql.ErrCodeWriteFailure, gocql.ErrCodeFunctionFailure:
		return types.KindRemoteFault, true
	case gocql.ErrCodeSyntax, gocql.ErrCodeInvalid, gocql.ErrCodeConfig,
		gocql.ErrCodeAlreadyExists:
		return types.KindRemoteFault, true
	case gocql.ErrCodeUnprepared:
		return types.KindConnectionAborted, true
	default:
		return types.KindUnknown, false
	}
}

// RemoteFault converts a server error frame into a *types.RemoteFault,
// or returns err unchanged.
func RemoteFault(err error) error {
	var reqErr gocql.RequestError
	if !errors.As(err, &reqErr) {
		return err
	}
	if kind, _ := requestErrorKind(reqErr.Code()); kind != types.KindRemoteFault {
		return err
	}

	return &types.RemoteFault{
		Code:   cqlCodeName(reqErr.Code()),
		Reason: reqErr.Message(),
		Detail: err.Error(),
	}
}

func cqlCodeName(code int) string {
	switch code {
	case gocql.ErrCodeServer:
		return "server_error"
	case gocql.ErrCodeTruncate:
		return "truncate_error"
	case gocql.ErrCodeReadFailure:
		return "read_failure"
	case gocql.ErrCodeWriteFailure:
		return "write_failure"
	case gocql.ErrCodeFunctionFailure:
		return "function_failure"
	case gocql.ErrCodeSyntax:
		return "syntax_error"
	case gocql.ErrCodeInvalid:
		return "invalid"
	case gocql.ErrCodeConfig:
		return "config_error"
	case gocql.ErrCodeAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}
