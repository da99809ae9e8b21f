package natsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arloliu/tether/types"
)

// Reply headers carrying an application-level error, as set by NATS
// micro services.
const (
	HeaderServiceError     = "Nats-Service-Error"
	HeaderServiceErrorCode = "Nats-Service-Error-Code"
)

// Client issues request/reply calls over a handle's connection.
type Client struct {
	conn    *nats.Conn
	prefix  string
	timeout time.Duration
}

func newClient(conn *nats.Conn, cfg types.EndpointConfig) *Client {
	return &Client{
		conn:    conn,
		prefix:  cfg.Meta(MetaSubjectPrefix, ""),
		timeout: cfg.CallTimeout,
	}
}

// Conn returns the underlying connection.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Subject returns subject with the endpoint's prefix applied.
func (c *Client) Subject(subject string) string {
	if c.prefix == "" {
		return subject
	}

	return c.prefix + "." + subject
}

// Request sends data and waits for a reply.
//
// The endpoint's CallTimeout bounds the call when ctx has no deadline. A
// reply carrying service error headers is returned as *types.RemoteFault.
//
// Parameters:
//   - ctx: Context for the call
//   - subject: Subject, before prefixing
//   - data: Request payload
//
// Returns:
//   - []byte: Reply payload
//   - error: Transport error or remote fault
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.conn.RequestMsgWithContext(ctx, &nats.Msg{
		Subject: c.Subject(subject),
		Data:    data,
	})
	if err != nil {
		return nil, err
	}

	if reason := msg.Header.Get(HeaderServiceError); reason != "" {
		return nil, &types.RemoteFault{
			Code:   msg.Header.Get(HeaderServiceErrorCode),
			Reason: reason,
			Detail: string(msg.Data),
		}
	}

	return msg.Data, nil
}

// RequestJSON marshals req, sends it, and unmarshals the reply into resp.
//
// resp may be nil when the reply body is not needed.
func (c *Client) RequestJSON(ctx context.Context, subject string, req, resp any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("natsconn: failed to encode request: %w", err)
	}

	reply, err := c.Request(ctx, subject, data)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(reply, resp); err != nil {
		return fmt.Errorf("natsconn: failed to decode reply: %w", err)
	}

	return nil
}
