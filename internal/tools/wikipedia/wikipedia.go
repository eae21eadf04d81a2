// Package wikipedia looks up article summaries through the MediaWiki API.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/agentflow/pkg/utils"
)

// DefaultURL is the MediaWiki API endpoint template; %s is the language code.
const DefaultURL = "https://%s.wikipedia.org/w/api.php"

// NoResult is returned when no article matches.
const NoResult = "No good Wikipedia Search Result was found"

const (
	defaultTopK      = 3
	maxSummaryLength = 4000
	userAgent        = "agentflow/1.0 (https://github.com/hyperjump/agentflow)"
)

// Client queries one language edition of Wikipedia.
type Client struct {
	endpoint   string
	topK       int
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTopK sets how many articles are summarized.
func WithTopK(k int) Option {
	return func(c *Client) {
		if k > 0 {
			c.topK = k
		}
	}
}

// NewClient returns a client. urlTemplate may contain %s for lang; empty uses DefaultURL.
func NewClient(urlTemplate, lang string, opts ...Option) *Client {
	if urlTemplate == "" {
		urlTemplate = DefaultURL
	}
	if lang == "" {
		lang = "en"
	}
	endpoint := urlTemplate
	if strings.Contains(urlTemplate, "%s") {
		endpoint = fmt.Sprintf(urlTemplate, lang)
	}
	c := &Client{
		endpoint:   endpoint,
		topK:       defaultTopK,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup searches for query and returns "Page: <title>\nSummary: <extract>"
// blocks for the best matches, separated by blank lines.
func (c *Client) Lookup(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", errors.New("wikipedia: query cannot be empty")
	}
	titles, err := c.search(ctx, query)
	if err != nil {
		return "", err
	}
	var blocks []string
	for _, title := range titles {
		summary, err := c.summary(ctx, title)
		if err != nil {
			return "", err
		}
		if summary == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Page: %s\nSummary: %s", title, utils.TruncateExact(summary, maxSummaryLength)))
	}
	if len(blocks) == 0 {
		return NoResult, nil
	}
	return strings.Join(blocks, "\n\n"), nil
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (c *Client) search(ctx context.Context, query string) ([]string, error) {
	var resp searchResponse
	err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(c.topK)},
		"format":   {"json"},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, s := range resp.Query.Search {
		titles = append(titles, s.Title)
	}
	return titles, nil
}

func (c *Client) summary(ctx context.Context, title string) (string, error) {
	var resp extractResponse
	err := c.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"titles":      {title},
		"format":      {"json"},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("wikipedia extract %q: %w", title, err)
	}
	for _, p := range resp.Query.Pages {
		if p.Extract != "" {
			return strings.TrimSpace(p.Extract), nil
		}
	}
	return "", nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
