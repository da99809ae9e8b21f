package grpcconn

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/arloliu/tether/types"
)

// Translate maps a gRPC status error to a failure kind.
//
// Mapping:
//
//	Unauthenticated, PermissionDenied       -> Security
//	Unimplemented                           -> ActionNotSupported
//	ResourceExhausted                       -> ServerTooBusy
//	Unavailable                             -> EndpointNotFound
//	DeadlineExceeded                        -> Timeout
//	Aborted                                 -> ConnectionAborted
//	Internal, Unknown, DataLoss             -> Communication
//	InvalidArgument, NotFound, AlreadyExists,
//	FailedPrecondition, OutOfRange          -> RemoteFault
//
// Canceled and non-status errors are not recognized.
//
// Aborted is treated as a torn exchange and rethrown after abort. Services
// that use Aborted for optimistic concurrency conflicts should place their
// own translator ahead of this one in a policy.DefaultClassifier.
//
// Parameters:
//   - err: The error to translate
//
// Returns:
//   - types.FailureKind: The failure kind
//   - bool: true if err carried a recognized status
func Translate(err error) (types.FailureKind, bool) {
	if err == nil {
		return types.KindUnknown, false
	}

	st, ok := status.FromError(err)
	if !ok {
		return types.KindUnknown, false
	}

	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return types.KindSecurity, true
	case codes.Unimplemented:
		return types.KindActionNotSupported, true
	case codes.ResourceExhausted:
		return types.KindServerTooBusy, true
	case codes.Unavailable:
		return types.KindEndpointNotFound, true
	case codes.DeadlineExceeded:
		return types.KindTimeout, true
	case codes.Aborted:
		return types.KindConnectionAborted, true
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return types.KindCommunication, true
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.FailedPrecondition, codes.OutOfRange:
		return types.KindRemoteFault, true
	default:
		return types.KindUnknown, false
	}
}

// RemoteFault converts an application-level status error into a
// *types.RemoteFault, or returns err unchanged.
//
// Use it in callbacks that want the remote code and message preserved in
// reports without depending on the grpc status package.
func RemoteFault(err error) error {
	kind, ok := Translate(err)
	if !ok || kind != types.KindRemoteFault {
		return err
	}
	st, _ := status.FromError(err)

	return &types.RemoteFault{Code: st.Code().String(), Reason: st.Message()}
}
