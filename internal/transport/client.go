package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Response is the outcome of a request that reached the server. Status
// interpretation is the classifier's job, not the transport's.
type Response struct {
	Status int
	Body   []byte
}

// Sender issues one request against the coupon service. A non-nil error means
// the request never produced a server response (DNS failure, timeout,
// connection reset); it never encodes an HTTP status.
type Sender interface {
	Send(ctx context.Context, method, path string, body any) (*Response, error)
}

// Client is a cookie-bearing HTTP client for the coupon service. The session
// credential lives in the cookie jar and is attached to every request; the
// client never retries and never interprets status codes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client for the service at baseURL. A zero timeout means
// requests are never aborted client-side; the workflow simply awaits the
// eventual outcome.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "transport").Logger(),
	}, nil
}

// Send issues a single request. A nil body sends an empty request body; a
// non-nil body is JSON-encoded.
func (c *Client) Send(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	correlationID := uuid.NewString()
	req.Header.Set("X-Correlation-ID", correlationID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Str("correlation_id", correlationID).
			Err(err).
			Msg("request failed before a response arrived")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response body: %w", method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("correlation_id", correlationID).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	return &Response{
		Status: resp.StatusCode,
		Body:   data,
	}, nil
}
