package twirpconn

import (
	"errors"

	"github.com/twitchtv/twirp"

	"github.com/arloliu/tether/types"
)

// Translate maps a twirp.Error to a failure kind.
//
// Internal and Unknown errors that wrap a recognizable network error
// (connection refused, reset, DNS) take that error's kind, so an
// unreachable server is reported as such rather than as a generic failure.
//
// Parameters:
//   - err: The error to translate
//
// Returns:
//   - types.FailureKind: The failure kind
//   - bool: true if err carried a recognized twirp.Error
func Translate(err error) (types.FailureKind, bool) {
	var twerr twirp.Error
	if err == nil || !errors.As(err, &twerr) {
		return types.KindUnknown, false
	}

	switch twerr.Code() {
	case twirp.Unauthenticated, twirp.PermissionDenied:
		return types.KindSecurity, true
	case twirp.Unimplemented, twirp.BadRoute:
		return types.KindActionNotSupported, true
	case twirp.ResourceExhausted:
		return types.KindServerTooBusy, true
	case twirp.Unavailable:
		return types.KindEndpointNotFound, true
	case twirp.DeadlineExceeded:
		return types.KindTimeout, true
	case twirp.Aborted:
		return types.KindConnectionAborted, true
	case twirp.Internal, twirp.Unknown:
		if kind := types.KindOf(err); kind != types.KindUnknown {
			return kind, true
		}
		return types.KindCommunication, true
	case twirp.DataLoss, twirp.Malformed:
		return types.KindCommunication, true
	case twirp.InvalidArgument, twirp.NotFound, twirp.AlreadyExists,
		twirp.FailedPrecondition, twirp.OutOfRange:
		return types.KindRemoteFault, true
	default:
		return types.KindUnknown, false
	}
}

// RemoteFault converts an application-level twirp.Error into a
// *types.RemoteFault, or returns err unchanged.
func RemoteFault(err error) error {
	kind, ok := Translate(err)
	if !ok || kind != types.KindRemoteFault {
		return err
	}

	var twerr twirp.Error
	errors.As(err, &twerr)

	return &types.RemoteFault{
		Code:   string(twerr.Code()),
		Reason: twerr.Msg(),
		Detail: twerr.Meta("cause"),
	}
}
