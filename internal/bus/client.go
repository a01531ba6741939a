package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/utils"
)

// ErrTypeNetwork classifies publish failures that never got a response.
const ErrTypeNetwork = "NetworkError"

const maxResponseBytes = 1 << 20

// Client publishes to a remote bus over HTTP with the PutEvents protocol.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a publisher posting to endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PutEvents sends req and returns the remote status and body untouched.
// Only transport failures are errors.
func (c *Client) PutEvents(ctx context.Context, req events.PutEventsRequest) (*events.PublishResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PutEvents request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build PutEvents request: %w", err)
	}
	httpReq.Header.Set("Content-Type", events.ContentType)
	httpReq.Header.Set(events.TargetHeader, events.PutEventsTarget)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &events.PublishError{
			Type:    ErrTypeNetwork,
			Message: "event bus unreachable",
			Err:     err,
		}
	}
	defer utils.Close(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &events.PublishError{
			Type:    ErrTypeNetwork,
			Message: "failed to read event bus response",
			Err:     err,
		}
	}

	return &events.PublishResult{StatusCode: resp.StatusCode, Body: data}, nil
}
