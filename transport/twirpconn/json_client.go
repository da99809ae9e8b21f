package twirpconn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/twitchtv/twirp"
)

// DefaultPathPrefix is the Twirp route prefix.
const DefaultPathPrefix = "/twirp"

// JSONClient calls Twirp methods using the JSON protocol.
//
// It is useful for services without generated Go stubs.
type JSONClient struct {
	baseURL string
	prefix  string
	client  *http.Client
}

// NewJSONClient creates a JSON client for the service at baseURL.
func NewJSONClient(baseURL string, client *http.Client) *JSONClient {
	return &JSONClient{baseURL: baseURL, prefix: DefaultPathPrefix, client: client}
}

type wireError struct {
	Code string            `json:"code"`
	Msg  string            `json:"msg"`
	Meta map[string]string `json:"meta"`
}

// Call invokes service/method with req and decodes the reply into resp.
//
// Non-200 replies are decoded as twirp.Error. Transport failures are
// returned as twirp internal errors wrapping the cause.
//
// Parameters:
//   - ctx: Context for the request
//   - service: Fully qualified service name, e.g. "acme.inventory.Inventory"
//   - method: Method name
//   - req: Request value, JSON encoded
//   - resp: Destination for the reply, may be nil
//
// Returns:
//   - error: twirp.Error on failure
func (c *JSONClient) Call(ctx context.Context, service, method string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return twirp.InternalErrorWith(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := c.baseURL + c.prefix + "/" + service + "/" + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return twirp.InternalErrorWith(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return twirp.WrapError(twirp.NewError(twirp.DeadlineExceeded, ctxErr.Error()), err)
		}
		return twirp.InternalErrorWith(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return twirp.InternalErrorWith(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return decodeError(httpResp.StatusCode, data)
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return twirp.NewError(twirp.Malformed, "failed to decode reply: "+err.Error())
	}

	return nil
}

func decodeError(status int, data []byte) twirp.Error {
	var we wireError
	if err := json.Unmarshal(data, &we); err != nil || !twirp.IsValidErrorCode(twirp.ErrorCode(we.Code)) {
		code := twirp.Unknown
		switch status {
		case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			code = twirp.Unavailable
		case http.StatusTooManyRequests:
			code = twirp.ResourceExhausted
		case http.StatusNotFound:
			code = twirp.BadRoute
		}

		return twirp.NewError(code, fmt.Sprintf("unexpected HTTP status %d", status)).
			WithMeta("http_status", fmt.Sprint(status))
	}

	twerr := twirp.NewError(twirp.ErrorCode(we.Code), we.Msg)
	for k, v := range we.Meta {
		twerr = twerr.WithMeta(k, v)
	}

	return twerr
}
