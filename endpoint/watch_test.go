package endpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tether/endpoint"
	"github.com/arloliu/tether/test/testutil"
)

func createTestKV(t *testing.T, js jetstream.JetStream, bucket string) jetstream.KeyValue {
	t.Helper()

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{Bucket: bucket})
	require.NoError(t, err)

	return kv
}

func nextSet(t *testing.T, ch <-chan *endpoint.Set) *endpoint.Set {
	t.Helper()

	select {
	case set, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return set
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for endpoint set")
		return nil
	}
}

func TestNewWatcherNilKV(t *testing.T) {
	_, err := endpoint.NewWatcher(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KeyValue store is nil")
}

func TestNewWatcherOptions(t *testing.T) {
	js, _ := testutil.StartEmbeddedNATS(t)
	kv := createTestKV(t, js, "test-options")

	w, err := endpoint.NewWatcher(kv,
		endpoint.WithKey("custom.key"),
		endpoint.WithPollInterval(time.Second),
		endpoint.WithFetchTimeout(3*time.Second),
	)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, "custom.key", w.Config().Key)
	assert.Equal(t, time.Second, w.Config().PollInterval)
	assert.Equal(t, 3*time.Second, w.Config().FetchTimeout)
	assert.Nil(t, w.Current())
}

func TestWatcherInitialAndUpdates(t *testing.T) {
	js, _ := testutil.StartEmbeddedNATS(t)
	kv := createTestKV(t, js, "test-updates")

	_, err := kv.PutString(t.Context(), "tether.endpoints", sample)
	require.NoError(t, err)

	w, err := endpoint.NewWatcher(kv)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	updates := w.Watch(ctx)
	assert.Equal(t, updates, w.Watch(ctx))

	first := nextSet(t, updates)
	assert.Equal(t, []string{"events", "inventory"}, first.Names())
	assert.Same(t, first, w.Current())

	_, err = kv.PutString(t.Context(), "tether.endpoints", "endpoints:\n  billing:\n    address: billing:443\n")
	require.NoError(t, err)

	second := nextSet(t, updates)
	assert.Equal(t, []string{"billing"}, second.Names())
	assert.Same(t, second, w.Current())
}

func TestWatcherSkipsInvalidDocument(t *testing.T) {
	js, _ := testutil.StartEmbeddedNATS(t)
	kv := createTestKV(t, js, "test-invalid")

	_, err := kv.PutString(t.Context(), "tether.endpoints", sample)
	require.NoError(t, err)

	w, err := endpoint.NewWatcher(kv)
	require.NoError(t, err)
	defer w.Close()

	updates := w.Watch(t.Context())
	first := nextSet(t, updates)

	_, err = kv.PutString(t.Context(), "tether.endpoints", "endpoints:\n  broken: {}\n")
	require.NoError(t, err)
	_, err = kv.PutString(t.Context(), "tether.endpoints", "endpoints:\n  fixed:\n    address: fixed:1\n")
	require.NoError(t, err)

	next := nextSet(t, updates)
	assert.Equal(t, []string{"fixed"}, next.Names())
	assert.NotSame(t, first, next)
}

func TestWatcherDeleteKeepsCurrent(t *testing.T) {
	js, _ := testutil.StartEmbeddedNATS(t)
	kv := createTestKV(t, js, "test-delete")

	_, err := kv.PutString(t.Context(), "tether.endpoints", sample)
	require.NoError(t, err)

	w, err := endpoint.NewWatcher(kv)
	require.NoError(t, err)
	defer w.Close()

	first := nextSet(t, w.Watch(t.Context()))

	require.NoError(t, kv.Delete(t.Context(), "tether.endpoints"))
	time.Sleep(100 * time.Millisecond)

	assert.Same(t, first, w.Current())
}

func TestWatcherCloseClosesChannel(t *testing.T) {
	js, _ := testutil.StartEmbeddedNATS(t)
	kv := createTestKV(t, js, "test-close")

	w, err := endpoint.NewWatcher(kv)
	require.NoError(t, err)

	updates := w.Watch(t.Context())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel not closed")
	}
}
