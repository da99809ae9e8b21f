package journal_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/arloliu/tether/journal"
	"github.com/arloliu/tether/types"
)

func sampleNotification() types.Notification {
	root := &types.RemoteFault{Code: "500", Reason: "Error"}
	err := fmt.Errorf("get error: %w", types.NewFailure(types.KindRemoteFault, "call", root))

	return types.Notification{
		Contract:     "testutil.MockService",
		Binding:      "mock",
		InvocationID: "inv-1",
		Verdict:      types.AbortAndReport,
		Kind:         types.KindRemoteFault,
		Err:          err,
		Time:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)),
	}
}

func TestNewRecord(t *testing.T) {
	n := sampleNotification()
	r := journal.NewRecord(n)

	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, "testutil.MockService", r.Contract)
	assert.Equal(t, "mock", r.Binding)
	assert.Equal(t, "inv-1", r.InvocationID)
	assert.Equal(t, types.AbortAndReport, r.Verdict)
	assert.Equal(t, types.KindRemoteFault, r.Kind)
	assert.Equal(t, n.Err.Error(), r.Message)
	assert.Equal(t, time.UTC, r.Time.Location())
	assert.True(t, r.Time.Equal(n.Time))

	require.Len(t, r.Chain, 2)
	assert.Equal(t, n.Err.(interface{ Unwrap() error }).Unwrap().Error(), r.Chain[0])
	assert.Equal(t, "tether: remote fault [500]: Error", r.Chain[1])
}

func TestNewRecordWithoutError(t *testing.T) {
	r := journal.NewRecord(types.Notification{Contract: "svc"})

	assert.Empty(t, r.Message)
	assert.Empty(t, r.Chain)
	assert.False(t, r.Time.IsZero())
}

func TestRecordMsgpRoundTrip(t *testing.T) {
	want := journal.NewRecord(sampleNotification())

	data, err := want.MarshalMsg(nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), want.Msgsize())

	var got journal.Record
	rest, err := got.UnmarshalMsg(data)
	require.NoError(t, err)
	assert.Empty(t, rest)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Contract, got.Contract)
	assert.Equal(t, want.Chain, got.Chain)
	assert.Equal(t, want.Verdict, got.Verdict)
	assert.Equal(t, want.Kind, got.Kind)
	assert.True(t, want.Time.Equal(got.Time))
}

func TestRecordUnmarshalSkipsUnknownFields(t *testing.T) {
	b := msgp.AppendMapHeader(nil, 2)
	b = msgp.AppendString(b, "future_field")
	b = msgp.AppendFloat64(b, 1.5)
	b = msgp.AppendString(b, "contract")
	b = msgp.AppendString(b, "svc")

	var r journal.Record
	_, err := r.UnmarshalMsg(b)
	require.NoError(t, err)
	assert.Equal(t, "svc", r.Contract)
}

func TestRecordUnmarshalErrors(t *testing.T) {
	var r journal.Record

	_, err := r.UnmarshalMsg([]byte{0xc1})
	require.Error(t, err)

	b := msgp.AppendMapHeader(nil, 1)
	b = msgp.AppendString(b, "id")
	b = msgp.AppendBytes(b, []byte{1, 2, 3})
	_, err = r.UnmarshalMsg(b)
	require.Error(t, err)
}

func TestEntryWithoutAcknowledgement(t *testing.T) {
	var e journal.Entry
	require.NoError(t, e.Ack())
	require.NoError(t, e.Nak())
	require.False(t, errors.Is(e.Ack(), journal.ErrJournalClosed))
}
