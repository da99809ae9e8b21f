package natsconn

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/test/testutil"
	"github.com/arloliu/tether/types"
)

type echoRequest struct {
	Text string `json:"text"`
}

type echoReply struct {
	Text string `json:"text"`
}

// Echo is a small typed contract over Client.
type Echo struct {
	c *Client
}

func (e Echo) Say(ctx context.Context, text string) (string, error) {
	var reply echoReply
	if err := e.c.RequestJSON(ctx, "echo", echoRequest{Text: text}, &reply); err != nil {
		return "", err
	}

	return reply.Text, nil
}

func (e Echo) Fail(ctx context.Context) error {
	return e.c.RequestJSON(ctx, "fail", echoRequest{}, nil)
}

func startResponder(t *testing.T) string {
	t.Helper()

	ns := testutil.StartNATSServer(t)
	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	_, err = nc.Subscribe("svc.echo", func(m *nats.Msg) {
		_ = m.Respond(m.Data)
	})
	require.NoError(t, err)

	_, err = nc.Subscribe("svc.fail", func(m *nats.Msg) {
		reply := nats.NewMsg(m.Reply)
		reply.Header.Set(HeaderServiceError, "Error")
		reply.Header.Set(HeaderServiceErrorCode, "500")
		_ = m.RespondMsg(reply)
	})
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	return ns.ClientURL()
}

func newEchoWrapper(t *testing.T, url string) (*tether.Wrapper[Echo], *testutil.MockObserver) {
	t.Helper()

	factory := NewFactory(func(c *Client) Echo { return Echo{c: c} })
	w, err := tether.New[Echo](factory, tether.WithEndpoint(types.EndpointConfig{
		Address:      url,
		OpenTimeout:  2 * time.Second,
		CloseTimeout: 2 * time.Second,
		CallTimeout:  time.Second,
		Metadata:     map[string]string{MetaSubjectPrefix: "svc"},
	}))
	require.NoError(t, err)

	obs := testutil.NewMockObserver()
	w.Registry().Register(w.Contract(), obs)

	return w, obs
}

func TestFactorySuccess(t *testing.T) {
	url := startResponder(t)
	w, obs := newEchoWrapper(t, url)

	got, err := tether.Return(t.Context(), w, func(ctx context.Context, e Echo) (string, error) {
		return e.Say(ctx, "Success")
	})

	require.NoError(t, err)
	require.Equal(t, "Success", got)
	require.Equal(t, 0, obs.Count())
}

func TestFactoryRemoteFault(t *testing.T) {
	url := startResponder(t)
	w, obs := newEchoWrapper(t, url)

	err := w.Use(t.Context(), func(ctx context.Context, e Echo) error {
		return e.Fail(ctx)
	})
	require.NoError(t, err)
	require.Equal(t, 1, obs.Count())

	var fault *types.RemoteFault
	require.ErrorAs(t, obs.Notifications()[0].Err, &fault)
	require.Equal(t, "Error", fault.Reason)
	require.Equal(t, "500", fault.Code)
}

func TestFactoryNoResponders(t *testing.T) {
	url := startResponder(t)
	w, obs := newEchoWrapper(t, url)

	_, err := tether.Return(t.Context(), w, func(ctx context.Context, e Echo) (string, error) {
		var reply echoReply
		err := e.c.RequestJSON(ctx, "missing", echoRequest{}, &reply)
		return reply.Text, err
	})

	require.ErrorIs(t, err, nats.ErrNoResponders)
	require.Equal(t, types.KindEndpointNotFound, obs.Notifications()[0].Kind)
}

func TestFactoryUnreachableServer(t *testing.T) {
	w, obs := newEchoWrapper(t, "nats://127.0.0.1:1")

	called := false
	err := w.Use(t.Context(), func(context.Context, Echo) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	require.False(t, called)
	require.Equal(t, 1, obs.Count())
	require.Equal(t, types.KindEndpointNotFound, obs.Notifications()[0].Kind)
}

func TestHandleLifecycle(t *testing.T) {
	url := startResponder(t)
	f := NewClientFactory()

	h, err := f.Create(t.Context(), types.EndpointConfig{Name: "svc", Address: url})
	require.NoError(t, err)
	require.Equal(t, types.StateCreated, h.State())

	require.NoError(t, h.Open(t.Context()))
	require.Equal(t, types.StateOpen, h.State())

	reply, err := h.Contract().Request(t.Context(), "svc.echo", []byte("ping"))
	require.NoError(t, err)
	require.Equal(t, "ping", string(reply))

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.Close(ctx))
	require.Equal(t, types.StateClosed, h.State())
	h.Abort()
	require.Equal(t, types.StateClosed, h.State())

	h2, err := f.Create(t.Context(), types.EndpointConfig{Name: "svc", Address: url})
	require.NoError(t, err)
	require.NoError(t, h2.Open(t.Context()))
	h2.Contract().Conn().Close()
	require.Equal(t, types.StateFaulted, h2.State())
	h2.Abort()
	require.Equal(t, types.StateAborted, h2.State())
	h2.Abort()
	require.Equal(t, types.StateAborted, h2.State())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		err  error
		want types.FailureKind
	}{
		{nats.ErrNoResponders, types.KindEndpointNotFound},
		{nats.ErrNoServers, types.KindEndpointNotFound},
		{nats.ErrTimeout, types.KindTimeout},
		{nats.ErrAuthorization, types.KindSecurity},
		{nats.ErrAuthRevoked, types.KindSecurity},
		{errors.New("nats: " + nats.PERMISSIONS_ERR + " for publish to \"orders.create\""), types.KindSecurity},
		{errors.New("nats: Permissions Violation for Subscription to \"_INBOX.>\""), types.KindSecurity},
		{nats.ErrConnectionReconnecting, types.KindChannelTerminated},
		{nats.ErrConnectionClosed, types.KindHandleDisposed},
		{nats.ErrConnectionDraining, types.KindConnectionFaulted},
		{nats.ErrMaxPayload, types.KindActionNotSupported},
		{nats.ErrSlowConsumer, types.KindServerTooBusy},
		{nats.ErrStaleConnection, types.KindChannelTerminated},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			kind, ok := Translate(fmt.Errorf("request: %w", tt.err))
			require.True(t, ok)
			require.Equal(t, tt.want, kind)
		})
	}

	_, ok := Translate(errors.New("plain"))
	require.False(t, ok)
}
