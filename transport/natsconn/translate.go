package natsconn

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/tether/types"
)

var natsKinds = []struct {
	err  error
	kind types.FailureKind
}{
	{nats.ErrNoResponders, types.KindEndpointNotFound},
	{nats.ErrNoServers, types.KindEndpointNotFound},
	{nats.ErrTimeout, types.KindTimeout},
	{nats.ErrAuthorization, types.KindSecurity},
	{nats.ErrAuthExpired, types.KindSecurity},
	{nats.ErrAuthRevoked, types.KindSecurity},
	{nats.ErrConnectionClosed, types.KindHandleDisposed},
	{nats.ErrConnectionDraining, types.KindConnectionFaulted},
	{nats.ErrMaxPayload, types.KindActionNotSupported},
	{nats.ErrSlowConsumer, types.KindServerTooBusy},
	{nats.ErrStaleConnection, types.KindChannelTerminated},
	{nats.ErrConnectionReconnecting, types.KindChannelTerminated},
}

// Translate maps a nats.go error to a failure kind.
//
// Parameters:
//   - err: The error to translate
//
// Returns:
//   - types.FailureKind: The failure kind
//   - bool: true if err is a recognized NATS error
func Translate(err error) (types.FailureKind, bool) {
	if err == nil {
		return types.KindUnknown, false
	}

	for _, m := range natsKinds {
		if errors.Is(err, m.err) {
			return m.kind, true
		}
	}

	if isPermissionViolation(err) {
		return types.KindSecurity, true
	}

	return types.KindUnknown, false
}

// permissionPrefix is how nats.go reports a server permissions violation;
// the error is built with errors.New, so there is no sentinel to match.
var permissionPrefix = "nats: " + nats.PERMISSIONS_ERR

func isPermissionViolation(err error) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if strings.HasPrefix(strings.ToLower(err.Error()), permissionPrefix) {
			return true
		}
	}

	return false
}
