package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrBodyTooLarge     = errors.New("response body too large")
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultUserAgent = "RetroBoston/RSSAction"

	maxBodyBytes = 16 << 20
)

// Client performs single GET requests, each bounded by a hard timeout.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// Get returns the body of url. Non-2xx responses are errors.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	slog.Debug("fetch: GET", "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, ErrBodyTooLarge
	}

	return body, nil
}
