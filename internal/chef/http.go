package chef

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPCollaborator calls a deployed generate-menu function over HTTP.
type HTTPCollaborator struct {
	url        string
	httpClient *http.Client
}

// NewHTTPCollaborator creates a collaborator posting to url.
func NewHTTPCollaborator(url string) *HTTPCollaborator {
	return &HTTPCollaborator{
		url: url,
		// Upper bound only; the caller's deadline is normally shorter.
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Generate implements Collaborator. Non-2xx replies that still carry the
// error shape are returned as a Response, not an error.
func (c *HTTPCollaborator) Generate(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, fmt.Errorf("generate-menu returned status %d with undecodable body: %w", resp.StatusCode, err)
	}
	if resp.StatusCode/100 != 2 && !out.Failed() {
		return Response{}, fmt.Errorf("generate-menu returned status %d", resp.StatusCode)
	}
	return out, nil
}
