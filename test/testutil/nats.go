package testutil

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

// StartNATSServer starts an embedded NATS server with JetStream enabled for testing.
//
// The server listens on a random available port and uses t.TempDir()
// for JetStream storage. It is shut down when the test completes.
//
// Parameters:
//   - t: The testing context
//
// Returns:
//   - *server.Server: The running server; use ClientURL() to connect
func StartNATSServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // Random available port
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err, "failed to create NATS server")

	ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready for connections")
	}

	t.Cleanup(ns.Shutdown)

	return ns
}

// StartEmbeddedNATS starts an embedded NATS server and returns a JetStream context.
//
// Both the connection and server are automatically cleaned up when the test
// completes.
//
// Parameters:
//   - t: The testing context
//
// Returns:
//   - jetstream.JetStream: A JetStream context ready for use
//   - string: The server's client URL
func StartEmbeddedNATS(t *testing.T) (jetstream.JetStream, string) {
	t.Helper()

	ns := StartNATSServer(t)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err, "failed to connect to NATS server")

	js, err := jetstream.New(nc)
	require.NoError(t, err, "failed to create JetStream context")

	t.Cleanup(nc.Close)

	return js, ns.ClientURL()
}
