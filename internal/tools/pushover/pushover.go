// Package pushover sends push notifications through the Pushover messages API.
package pushover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURL is the Pushover messages endpoint.
const DefaultURL = "https://api.pushover.net/1/messages.json"

// ErrNotConfigured is returned when the token or user key is missing.
var ErrNotConfigured = errors.New("pushover: token and user are required")

// Client posts messages to Pushover.
type Client struct {
	url        string
	token      string
	user       string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a client for the given application token and user key.
// An empty endpoint uses DefaultURL.
func NewClient(endpoint, token, user string, opts ...Option) (*Client, error) {
	if token == "" || user == "" {
		return nil, ErrNotConfigured
	}
	if endpoint == "" {
		endpoint = DefaultURL
	}
	c := &Client{
		url:        endpoint,
		token:      token,
		user:       user,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Push sends message to the configured user.
func (c *Client) Push(ctx context.Context, message string) error {
	form := url.Values{
		"token":   {c.token},
		"user":    {c.user},
		"message": {message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushover request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("pushover returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
