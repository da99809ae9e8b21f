package grpcconn

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/policy"
	"github.com/arloliu/tether/test/testutil"
	"github.com/arloliu/tether/types"
)

type testServer struct {
	lis     *bufconn.Listener
	headers chan metadata.MD
}

func startHealthServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		lis:     bufconn.Listen(1 << 20),
		headers: make(chan metadata.MD, 16),
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			select {
			case ts.headers <- md:
			default:
			}
		}
		return handler(ctx, req)
	}))

	hs := health.NewServer()
	hs.SetServingStatus("inventory", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() { _ = srv.Serve(ts.lis) }()
	t.Cleanup(srv.Stop)

	return ts
}

func (ts *testServer) factory() *Factory[healthpb.HealthClient] {
	return NewFactory(healthpb.NewHealthClient, WithDialOptions(
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return ts.lis.DialContext(ctx)
		}),
	))
}

func newWrapper(t *testing.T, f tether.ConnectionFactory[healthpb.HealthClient], cfg types.EndpointConfig) (*tether.Wrapper[healthpb.HealthClient], *testutil.MockObserver) {
	t.Helper()

	w, err := tether.New(f, tether.WithEndpoint(cfg))
	require.NoError(t, err)

	obs := testutil.NewMockObserver()
	w.Registry().Register(w.Contract(), obs)

	return w, obs
}

func TestFactorySuccess(t *testing.T) {
	ts := startHealthServer(t)
	w, obs := newWrapper(t, ts.factory(), types.EndpointConfig{
		Address:     "passthrough:///bufnet",
		OpenTimeout: 5 * time.Second,
		Metadata:    map[string]string{"header.x-tenant": "acme", "subject": "ignored"},
	})

	resp, err := tether.Return(t.Context(), w, func(ctx context.Context, c healthpb.HealthClient) (*healthpb.HealthCheckResponse, error) {
		return c.Check(ctx, &healthpb.HealthCheckRequest{Service: "inventory"})
	})

	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	require.Equal(t, 0, obs.Count())

	md := <-ts.headers
	require.Equal(t, []string{"acme"}, md.Get("x-tenant"))
	require.Empty(t, md.Get("subject"))
}

func TestFactoryRemoteFault(t *testing.T) {
	ts := startHealthServer(t)
	w, obs := newWrapper(t, ts.factory(), types.EndpointConfig{Address: "passthrough:///bufnet"})

	check := func(ctx context.Context, c healthpb.HealthClient) error {
		_, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
		return err
	}

	require.NoError(t, w.Use(t.Context(), check))
	require.Equal(t, 1, obs.Count())
	require.Equal(t, types.KindRemoteFault, obs.Notifications()[0].Kind)

	_, err := tether.Return(t.Context(), w, func(ctx context.Context, c healthpb.HealthClient) (*healthpb.HealthCheckResponse, error) {
		resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
		return resp, RemoteFault(err)
	})

	var fault *types.RemoteFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, codes.NotFound.String(), fault.Code)
}

func TestFactoryUnreachableEndpoint(t *testing.T) {
	refuse := NewFactory(healthpb.NewHealthClient, WithDialOptions(
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
		}),
	))

	t.Run("lazy open", func(t *testing.T) {
		w, obs := newWrapper(t, refuse, types.EndpointConfig{
			Address:     "passthrough:///nowhere",
			CallTimeout: 2 * time.Second,
		})

		err := w.Use(t.Context(), func(ctx context.Context, c healthpb.HealthClient) error {
			_, err := c.Check(ctx, &healthpb.HealthCheckRequest{})
			return err
		})

		require.NoError(t, err)
		require.Equal(t, 1, obs.Count())
		require.Equal(t, types.KindEndpointNotFound, obs.Notifications()[0].Kind)
	})

	t.Run("eager open", func(t *testing.T) {
		w, obs := newWrapper(t, refuse, types.EndpointConfig{
			Address:     "passthrough:///nowhere",
			OpenTimeout: 2 * time.Second,
		})

		called := false
		err := w.Use(t.Context(), func(context.Context, healthpb.HealthClient) error {
			called = true
			return nil
		})

		require.NoError(t, err)
		require.False(t, called)
		require.True(t, obs.HasError(types.ErrEndpointNotFound))
	})
}

func TestFactoryMissingAddress(t *testing.T) {
	f := NewFactory(healthpb.NewHealthClient)
	w, err := tether.New[healthpb.HealthClient](f)
	require.NoError(t, err)

	err = w.Use(t.Context(), func(context.Context, healthpb.HealthClient) error { return nil })
	require.ErrorIs(t, err, types.ErrHandleCreate)
}

func TestHandleLifecycle(t *testing.T) {
	ts := startHealthServer(t)
	f := ts.factory()

	h, err := f.Create(t.Context(), types.EndpointConfig{Address: "passthrough:///bufnet"})
	require.NoError(t, err)
	require.Equal(t, types.StateCreated, h.State())

	require.NoError(t, h.Open(t.Context()))
	require.Equal(t, types.StateOpen, h.State())
	require.ErrorIs(t, h.Open(t.Context()), types.ErrHandleState)

	require.NoError(t, h.Close(t.Context()))
	require.Equal(t, types.StateClosed, h.State())

	h.Abort()
	require.Equal(t, types.StateClosed, h.State(), "abort after close is a no-op")

	h2, err := f.Create(t.Context(), types.EndpointConfig{Address: "passthrough:///bufnet"})
	require.NoError(t, err)
	h2.Abort()
	require.Equal(t, types.StateAborted, h2.State())
	require.ErrorIs(t, h2.Close(t.Context()), types.ErrHandleState)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		code codes.Code
		want types.FailureKind
		ok   bool
	}{
		{codes.Unauthenticated, types.KindSecurity, true},
		{codes.PermissionDenied, types.KindSecurity, true},
		{codes.Unimplemented, types.KindActionNotSupported, true},
		{codes.ResourceExhausted, types.KindServerTooBusy, true},
		{codes.Unavailable, types.KindEndpointNotFound, true},
		{codes.DeadlineExceeded, types.KindTimeout, true},
		{codes.Aborted, types.KindConnectionAborted, true},
		{codes.Internal, types.KindCommunication, true},
		{codes.DataLoss, types.KindCommunication, true},
		{codes.NotFound, types.KindRemoteFault, true},
		{codes.InvalidArgument, types.KindRemoteFault, true},
		{codes.Canceled, types.KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			kind, ok := Translate(status.Error(tt.code, "x"))
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, kind)
		})
	}

	_, ok := Translate(errors.New("plain"))
	require.False(t, ok)
	_, ok = Translate(nil)
	require.False(t, ok)
}

func TestAbortedOverriddenByEarlierTranslator(t *testing.T) {
	f := NewFactory(healthpb.NewHealthClient)
	conflict := status.Error(codes.Aborted, "version mismatch")

	require.Equal(t, types.RethrowAfterAbort, policy.NewDefaultClassifier(policy.WithTranslator(f)).Classify(conflict))

	conflicts := policy.TranslatorFunc(func(err error) (types.FailureKind, bool) {
		if status.Code(err) == codes.Aborted {
			return types.KindRemoteFault, true
		}
		return types.KindUnknown, false
	})
	classifier := policy.NewDefaultClassifier(policy.WithTranslator(conflicts), policy.WithTranslator(f))

	require.Equal(t, types.AbortAndReport, classifier.Classify(conflict))
	require.Equal(t, types.AbortAndReport, classifier.Classify(status.Error(codes.Unavailable, "down")))
}
