package cqlconn

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tether/types"
)

type frameError struct {
	code int
	msg  string
}

func (e frameError) Code() int       { return e.code }
func (e frameError) Message() string { return e.msg }
func (e frameError) Error() string   { return e.msg }

func TestClusterConfig(t *testing.T) {
	customized := false
	f := NewSessionFactory(WithClusterConfig(func(c *gocql.ClusterConfig) {
		customized = true
		c.NumConns = 3
	}))

	cluster, err := f.clusterConfig(types.EndpointConfig{
		Name:        "orders-db",
		Address:     "10.0.0.1, 10.0.0.2,,",
		OpenTimeout: 3 * time.Second,
		CallTimeout: 500 * time.Millisecond,
		Identity:    types.Identity{Username: "app", Password: "pw", TLS: true, ServerName: "db.local"},
		Metadata: map[string]string{
			MetaKeyspace:    "orders",
			MetaConsistency: "LOCAL_QUORUM",
			MetaDatacenter:  "dc1",
		},
	})
	require.NoError(t, err)

	require.True(t, customized)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cluster.Hosts)
	require.Equal(t, "orders", cluster.Keyspace)
	require.Equal(t, gocql.LocalQuorum, cluster.Consistency)
	require.Equal(t, 3*time.Second, cluster.ConnectTimeout)
	require.Equal(t, 500*time.Millisecond, cluster.Timeout)
	require.Equal(t, 3, cluster.NumConns)
	require.NotNil(t, cluster.PoolConfig.HostSelectionPolicy)
	require.Equal(t, gocql.PasswordAuthenticator{Username: "app", Password: "pw"}, cluster.Authenticator)
	require.NotNil(t, cluster.SslOpts)
	require.Equal(t, "db.local", cluster.SslOpts.Config.ServerName)
}

func TestClusterConfigErrors(t *testing.T) {
	f := NewSessionFactory()

	_, err := f.Create(t.Context(), types.EndpointConfig{Name: "db", Address: " , "})
	require.Error(t, err)

	_, err = f.Create(t.Context(), types.EndpointConfig{
		Name:     "db",
		Address:  "127.0.0.1",
		Metadata: map[string]string{MetaConsistency: "SOMETIMES"},
	})
	require.Error(t, err)
}

func TestHandleOpenUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	f := NewSessionFactory(WithClusterConfig(func(c *gocql.ClusterConfig) {
		c.DisableInitialHostLookup = true
		c.ReconnectionPolicy = &gocql.ConstantReconnectionPolicy{MaxRetries: 0}
	}))

	h, err := f.Create(t.Context(), types.EndpointConfig{
		Name:        "db",
		Address:     addr,
		OpenTimeout: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, types.StateCreated, h.State())

	err = h.Open(t.Context())
	require.Error(t, err)
	require.Equal(t, types.StateCreated, h.State())
	require.ErrorIs(t, h.Close(t.Context()), types.ErrHandleState)

	kind, ok := Translate(err)
	require.True(t, ok)
	require.Equal(t, types.KindEndpointNotFound, kind)

	h.Abort()
	require.Equal(t, types.StateAborted, h.State())
	h.Abort()
	require.Equal(t, types.StateAborted, h.State())
	require.ErrorIs(t, h.Close(t.Context()), types.ErrHandleState)
}

func TestTranslateRequestErrors(t *testing.T) {
	tests := []struct {
		code int
		want types.FailureKind
	}{
		{gocql.ErrCodeCredentials, types.KindSecurity},
		{gocql.ErrCodeUnauthorized, types.KindSecurity},
		{gocql.ErrCodeUnavailable, types.KindEndpointNotFound},
		{gocql.ErrCodeBootstrapping, types.KindEndpointNotFound},
		{gocql.ErrCodeOverloaded, types.KindServerTooBusy},
		{gocql.ErrCodeWriteTimeout, types.KindTimeout},
		{gocql.ErrCodeReadTimeout, types.KindTimeout},
		{gocql.ErrCodeProtocol, types.KindCommunication},
		{gocql.ErrCodeSyntax, types.KindRemoteFault},
		{gocql.ErrCodeInvalid, types.KindRemoteFault},
		{gocql.ErrCodeServer, types.KindRemoteFault},
		{gocql.ErrCodeUnprepared, types.KindConnectionAborted},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("0x%04x", tt.code), func(t *testing.T) {
			kind, ok := Translate(fmt.Errorf("query: %w", frameError{code: tt.code, msg: "boom"}))
			require.True(t, ok)
			require.Equal(t, tt.want, kind)
		})
	}
}

func TestTranslateDriverErrors(t *testing.T) {
	tests := []struct {
		err  error
		want types.FailureKind
	}{
		{gocql.ErrNoHosts, types.KindEndpointNotFound},
		{gocql.ErrNoConnectionsStarted, types.KindEndpointNotFound},
		{gocql.ErrNoConnections, types.KindConnectionFaulted},
		{gocql.ErrSessionClosed, types.KindHandleDisposed},
		{gocql.ErrConnectionClosed, types.KindChannelTerminated},
		{gocql.ErrTimeoutNoResponse, types.KindTimeout},
		{gocql.ErrTooManyTimeouts, types.KindServerTooBusy},
		{gocql.ErrUnsupported, types.KindActionNotSupported},
		{errors.New("gocql: unable to create session: dial tcp 10.0.0.9:9042: connect: connection refused"), types.KindEndpointNotFound},
		{errors.New("gocql: unable to create session: control: unable to connect: i/o timeout"), types.KindTimeout},
		{errors.New("gocql: unable to create session: x509: certificate signed by unknown authority"), types.KindSecurity},
		{errors.New("gocql: unable to create session: something odd"), types.KindCommunication},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			kind, ok := Translate(tt.err)
			require.True(t, ok)
			require.Equal(t, tt.want, kind)
		})
	}

	_, ok := Translate(errors.New("connection refused"))
	require.False(t, ok)
	_, ok = Translate(gocql.ErrNotFound)
	require.False(t, ok)
}

func TestRemoteFault(t *testing.T) {
	err := RemoteFault(frameError{code: gocql.ErrCodeInvalid, msg: "unconfigured table orders"})

	var fault *types.RemoteFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, "invalid", fault.Code)
	require.Equal(t, "unconfigured table orders", fault.Reason)

	timeout := frameError{code: gocql.ErrCodeReadTimeout, msg: "timeout"}
	require.Equal(t, error(timeout), RemoteFault(timeout))

	plain := errors.New("plain")
	require.Equal(t, plain, RemoteFault(plain))
}
