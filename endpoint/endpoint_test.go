package endpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tether"
	"github.com/arloliu/tether/endpoint"
	"github.com/arloliu/tether/test/testutil"
	"github.com/arloliu/tether/types"
)

const sample = `
defaults:
  binding: grpc
  open_timeout: 5s
  close_timeout: 2s
endpoints:
  inventory:
    address: dns:///inventory.internal:443
    call_timeout: 750ms
    identity:
      token: secret-token
      tls: true
      server_name: inventory.internal
    metadata:
      header.x-tenant: acme
  events:
    binding: nats
    address: nats://127.0.0.1:4222
    open_timeout: 1s
    metadata:
      subject_prefix: events
`

func TestParse(t *testing.T) {
	set, err := endpoint.Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "inventory"}, set.Names())

	inv, err := set.Get("inventory")
	require.NoError(t, err)
	assert.Equal(t, "inventory", inv.Name)
	assert.Equal(t, "grpc", inv.Binding)
	assert.Equal(t, "dns:///inventory.internal:443", inv.Address)
	assert.Equal(t, 5*time.Second, inv.OpenTimeout)
	assert.Equal(t, 2*time.Second, inv.CloseTimeout)
	assert.Equal(t, 750*time.Millisecond, inv.CallTimeout)
	assert.Equal(t, types.Identity{Token: "secret-token", TLS: true, ServerName: "inventory.internal"}, inv.Identity)
	assert.Equal(t, "acme", inv.Meta("header.x-tenant", ""))

	events, err := set.Get("events")
	require.NoError(t, err)
	assert.Equal(t, "nats", events.Binding)
	assert.Equal(t, time.Second, events.OpenTimeout)
	assert.Equal(t, 2*time.Second, events.CloseTimeout)
	assert.Zero(t, events.CallTimeout)
}

func TestGetReturnsCopy(t *testing.T) {
	set, err := endpoint.Parse([]byte(sample))
	require.NoError(t, err)

	a, err := set.Get("inventory")
	require.NoError(t, err)
	a.Metadata["header.x-tenant"] = "changed"

	b, err := set.Get("inventory")
	require.NoError(t, err)
	assert.Equal(t, "acme", b.Metadata["header.x-tenant"])
}

func TestGetNotFound(t *testing.T) {
	set, err := endpoint.Parse([]byte(sample))
	require.NoError(t, err)

	_, err = set.Get("missing")
	require.ErrorIs(t, err, endpoint.ErrNotFound)

	_, err = set.Apply("missing")
	require.ErrorIs(t, err, endpoint.ErrNotFound)

	_, err = set.Options("missing")
	require.ErrorIs(t, err, endpoint.ErrNotFound)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing address",
			doc:  "endpoints:\n  a:\n    binding: grpc\n",
			want: `endpoint "a": address is required`,
		},
		{
			name: "negative timeout",
			doc:  "endpoints:\n  a:\n    address: x\n    call_timeout: -1s\n",
			want: `endpoint "a": call_timeout must not be negative`,
		},
		{
			name: "bad duration",
			doc:  "endpoints:\n  a:\n    address: x\n    open_timeout: soon\n",
			want: "failed to parse endpoint file",
		},
		{
			name: "not yaml",
			doc:  "endpoints: [",
			want: "failed to parse endpoint file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := endpoint.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseReportsAllErrors(t *testing.T) {
	_, err := endpoint.Parse([]byte("endpoints:\n  a: {}\n  b: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `endpoint "a"`)
	assert.Contains(t, err.Error(), `endpoint "b"`)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TETHER_TEST_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	doc := "endpoints:\n  svc:\n    address: localhost:9000\n    identity:\n      token: ${TETHER_TEST_TOKEN}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	set, err := endpoint.Load(path)
	require.NoError(t, err)

	cfg, err := set.Get("svc")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Identity.Token)

	_, err = endpoint.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyWithConfigure(t *testing.T) {
	set, err := endpoint.Parse([]byte(sample))
	require.NoError(t, err)

	mutator, err := set.Apply("inventory")
	require.NoError(t, err)

	factory, _ := testutil.NewMockServiceFactory()
	w, err := tether.New[testutil.MockService](factory, tether.WithBindingName("primary"))
	require.NoError(t, err)
	w.Configure(mutator)

	assert.Equal(t, "primary", w.Binding())
	assert.Equal(t, "dns:///inventory.internal:443", w.Endpoint().Address)
	assert.Equal(t, "primary", w.Endpoint().Name)

	require.NoError(t, w.Use(t.Context(), func(ctx context.Context, s testutil.MockService) error {
		_, err := s.GetData(ctx)
		return err
	}))
	assert.Equal(t, "dns:///inventory.internal:443", factory.Last().Endpoint().Address)
	assert.Equal(t, 750*time.Millisecond, factory.Last().Endpoint().CallTimeout)
}

func TestOptions(t *testing.T) {
	set, err := endpoint.Parse([]byte(sample))
	require.NoError(t, err)

	opts, err := set.Options("events")
	require.NoError(t, err)

	factory, _ := testutil.NewMockServiceFactory()
	w, err := tether.New[testutil.MockService](factory, opts...)
	require.NoError(t, err)

	assert.Equal(t, "events", w.Binding())
	assert.Equal(t, "nats://127.0.0.1:4222", w.Endpoint().Address)
}
