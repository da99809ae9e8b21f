package journal

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tinylib/msgp/msgp"

	"github.com/arloliu/tether/types"
)

var (
	// ErrJournalFull is returned by Append when a bounded journal is at capacity.
	ErrJournalFull = errors.New("tether: journal full")

	// ErrJournalClosed is returned by operations on a closed journal.
	ErrJournalClosed = errors.New("tether: journal closed")
)

// Record is the persisted form of a failure notification.
type Record struct {
	ID           uuid.UUID
	Contract     string
	Binding      string
	InvocationID string
	Verdict      types.Verdict
	Kind         types.FailureKind

	// Message is the text of the reported error.
	Message string

	// Chain holds the messages of the wrapped causes, outermost first.
	Chain []string

	Time time.Time
}

// Compile-time assertions.
var (
	_ msgp.Marshaler   = (*Record)(nil)
	_ msgp.Unmarshaler = (*Record)(nil)
	_ msgp.Sizer       = (*Record)(nil)
)

// NewRecord builds a record from a notification.
//
// The error chain is flattened by following errors.Unwrap, so the record
// stays meaningful after the original error values are gone.
//
// Parameters:
//   - n: The notification to record
//
// Returns:
//   - Record: A record with a fresh ID
func NewRecord(n types.Notification) Record {
	r := Record{
		ID:           uuid.New(),
		Contract:     n.Contract,
		Binding:      n.Binding,
		InvocationID: n.InvocationID,
		Verdict:      n.Verdict,
		Kind:         n.Kind,
		Time:         n.Time.UTC(),
	}
	if r.Time.IsZero() {
		r.Time = time.Now().UTC()
	}

	if n.Err != nil {
		r.Message = n.Err.Error()
		for cause := errors.Unwrap(n.Err); cause != nil; cause = errors.Unwrap(cause) {
			r.Chain = append(r.Chain, cause.Error())
		}
	}

	return r
}

const recordFields = 9

// MarshalMsg appends the MessagePack encoding of r to b.
func (r *Record) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, r.Msgsize())
	o = msgp.AppendMapHeader(o, recordFields)
	o = msgp.AppendString(o, "id")
	o = msgp.AppendBytes(o, r.ID[:])
	o = msgp.AppendString(o, "contract")
	o = msgp.AppendString(o, r.Contract)
	o = msgp.AppendString(o, "binding")
	o = msgp.AppendString(o, r.Binding)
	o = msgp.AppendString(o, "invocation_id")
	o = msgp.AppendString(o, r.InvocationID)
	o = msgp.AppendString(o, "verdict")
	o = msgp.AppendInt(o, int(r.Verdict))
	o = msgp.AppendString(o, "kind")
	o = msgp.AppendInt(o, int(r.Kind))
	o = msgp.AppendString(o, "message")
	o = msgp.AppendString(o, r.Message)
	o = msgp.AppendString(o, "chain")
	o = msgp.AppendArrayHeader(o, uint32(len(r.Chain))) //nolint:gosec // chain length is bounded by error depth
	for _, c := range r.Chain {
		o = msgp.AppendString(o, c)
	}
	o = msgp.AppendString(o, "time")
	o = msgp.AppendTime(o, r.Time)

	return o, nil
}

// UnmarshalMsg decodes a record from b and returns the remaining bytes.
// Unknown fields are skipped.
func (r *Record) UnmarshalMsg(b []byte) ([]byte, error) {
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, msgp.WrapError(err)
	}

	for range n {
		var field []byte
		field, b, err = msgp.ReadMapKeyZC(b)
		if err != nil {
			return b, msgp.WrapError(err)
		}

		switch msgp.UnsafeString(field) {
		case "id":
			var id []byte
			id, b, err = msgp.ReadBytesZC(b)
			if err != nil {
				return b, msgp.WrapError(err, "id")
			}
			if r.ID, err = uuid.FromBytes(id); err != nil {
				return b, msgp.WrapError(err, "id")
			}
		case "contract":
			r.Contract, b, err = msgp.ReadStringBytes(b)
		case "binding":
			r.Binding, b, err = msgp.ReadStringBytes(b)
		case "invocation_id":
			r.InvocationID, b, err = msgp.ReadStringBytes(b)
		case "verdict":
			var v int
			v, b, err = msgp.ReadIntBytes(b)
			r.Verdict = types.Verdict(v)
		case "kind":
			var k int
			k, b, err = msgp.ReadIntBytes(b)
			r.Kind = types.FailureKind(k)
		case "message":
			r.Message, b, err = msgp.ReadStringBytes(b)
		case "chain":
			b, err = r.unmarshalChain(b)
		case "time":
			r.Time, b, err = msgp.ReadTimeBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return b, msgp.WrapError(err, string(field))
		}
	}

	return b, nil
}

func (r *Record) unmarshalChain(b []byte) ([]byte, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}

	r.Chain = nil
	if n > 0 {
		r.Chain = make([]string, n)
	}
	for i := range r.Chain {
		r.Chain[i], b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return b, err
		}
	}

	return b, nil
}

// Msgsize returns an upper bound on the encoded size of r.
func (r *Record) Msgsize() int {
	s := msgp.MapHeaderSize +
		14*recordFields + // field names
		msgp.BytesPrefixSize + len(r.ID) +
		msgp.StringPrefixSize*4 + len(r.Contract) + len(r.Binding) + len(r.InvocationID) + len(r.Message) +
		msgp.IntSize*2 +
		msgp.ArrayHeaderSize +
		msgp.TimeSize
	for _, c := range r.Chain {
		s += msgp.StringPrefixSize + len(c)
	}

	return s
}

// Entry is a record handed out by a journal.
//
// Ack removes the record from a durable journal; Nak asks for redelivery.
// Both are no-ops for journals without acknowledgement.
type Entry struct {
	Record Record

	ackFunc func() error
	nakFunc func() error
}

// Ack acknowledges the entry.
func (e Entry) Ack() error {
	if e.ackFunc == nil {
		return nil
	}

	return e.ackFunc()
}

// Nak requests redelivery of the entry.
func (e Entry) Nak() error {
	if e.nakFunc == nil {
		return nil
	}

	return e.nakFunc()
}
