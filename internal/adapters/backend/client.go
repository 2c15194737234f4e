// Package backend is the HTTP client for the aggregation backend.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/hush/internal/domain/attribution"
)

const (
	submitPath     = "/v1/submit-update"
	maxErrorBody   = 4 << 10
	defaultTimeout = 5 * time.Second
)

// Client submits attribution payloads to the backend.
type Client struct {
	base  string
	token string
	hc    *http.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}
	c := &Client{base: base, hc: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type submitResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

// Submit implements attribution.Submitter.
func (c *Client) Submit(ctx context.Context, p attribution.Payload) (attribution.Ack, error) {
	b, err := json.Marshal(attribution.Envelope{FeatureAttributions: p})
	if err != nil {
		return attribution.Ack{}, fmt.Errorf("encode payload: %w", err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+submitPath, bytes.NewReader(b))
	if err != nil {
		return attribution.Ack{}, err
	}
	r.Header.Set("Content-Type", "application/json")
	c.authorize(r)

	resp, err := c.hc.Do(r)
	if err != nil {
		return attribution.Ack{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return attribution.Ack{}, rejection("submit", resp)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return attribution.Ack{}, fmt.Errorf("submit decode: %w", err)
	}
	return attribution.Ack{Status: out.Status, ReceivedAt: time.Now()}, nil
}

// Health checks that the backend answers on its root path.
func (c *Client) Health(ctx context.Context) error {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return err
	}
	c.authorize(r)
	resp, err := c.hc.Do(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return rejection("health", resp)
	}
	return nil
}

func (c *Client) authorize(r *http.Request) {
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// rejection builds an ErrRejected error from a non-2xx response, preferring
// the backend's detail field over the raw body.
func rejection(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Detail != nil {
		if s, ok := er.Detail.(string); ok {
			msg = s
		} else if raw, err := json.Marshal(er.Detail); err == nil {
			msg = string(raw)
		}
	}
	return fmt.Errorf("%w: %s %s: %s", ErrRejected, op, resp.Status, msg)
}
