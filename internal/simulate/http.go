package simulate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/hush/internal/domain/attribution"
	"github.com/okian/hush/internal/domain/types"
	"github.com/okian/hush/pkg/logger"
)

// HTTPClient talks to the agent API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends body as JSON and decodes a JSON response into out when non-nil.
// It returns the status code.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if out != nil && len(data) > 0 && resp.StatusCode < http.StatusBadRequest {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// journalResponse mirrors the agent's POST /journal response.
type journalResponse struct {
	Entry struct {
		ID          string               `json:"id"`
		Attribution *attribution.Payload `json:"attribution"`
	} `json:"entry"`
	Duplicate  bool                   `json:"duplicate"`
	Submission types.SubmissionStatus `json:"submission"`
}

type journalRequest struct {
	ID      string `json:"id"`
	Prompt  string `json:"prompt"`
	Content string `json:"content"`
}

func (c *HTTPClient) health(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

func (c *HTTPClient) registerSurface(ctx context.Context, handle string) error {
	return c.expect(ctx, http.MethodPost, "/surfaces/"+url.PathEscape(handle), nil, http.StatusCreated)
}

func (c *HTTPClient) startSession(ctx context.Context, handle string) error {
	return c.expect(ctx, http.MethodPost, "/sessions", map[string]string{"handle": handle}, http.StatusCreated)
}

func (c *HTTPClient) endSession(ctx context.Context) error {
	return c.expect(ctx, http.MethodDelete, "/sessions/current", nil, http.StatusNoContent)
}

func (c *HTTPClient) deliverKeys(ctx context.Context, handle string, keys []Key) error {
	return c.expect(ctx, http.MethodPost, "/surfaces/"+url.PathEscape(handle)+"/keys", keys, http.StatusAccepted)
}

func (c *HTTPClient) submit(ctx context.Context, e Entry) (journalResponse, int, error) {
	var out journalResponse
	status, err := c.do(ctx, http.MethodPost, "/journal",
		journalRequest{ID: e.ID, Prompt: e.Prompt, Content: e.Content}, &out)
	return out, status, err
}

func (c *HTTPClient) stats(ctx context.Context) (types.Stats, error) {
	var out types.Stats
	status, err := c.do(ctx, http.MethodGet, "/stats", nil, &out)
	if err != nil {
		return out, err
	}
	if status != http.StatusOK {
		return out, fmt.Errorf("stats: unexpected status %d", status)
	}
	return out, nil
}

func (c *HTTPClient) expect(ctx context.Context, method, path string, body any, want int) error {
	status, err := c.do(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, status)
	}
	return nil
}
