// Package serper runs Google web searches through the Serper API and condenses
// the response into a short text answer.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultURL is the Serper search endpoint.
const DefaultURL = "https://google.serper.dev/search"

// NoResult is returned when the response has nothing usable.
const NoResult = "No good Google Search Result was found"

const (
	defaultNumResults = 10
	requestsPerSecond = 5
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("serper: API key is required")

// Client queries Serper.
type Client struct {
	url        string
	apiKey     string
	numResults int
	limiter    *rate.Limiter
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNumResults sets how many organic results are requested and summarized.
func WithNumResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.numResults = n
		}
	}
}

// NewClient returns a Serper client. An empty endpoint uses DefaultURL.
func NewClient(endpoint, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if endpoint == "" {
		endpoint = DefaultURL
	}
	c := &Client{
		url:        endpoint,
		apiKey:     apiKey,
		numResults: defaultNumResults,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

// Response is the subset of the Serper response that Search reads.
type Response struct {
	AnswerBox *struct {
		Answer             string   `json:"answer"`
		Snippet            string   `json:"snippet"`
		SnippetHighlighted []string `json:"snippetHighlighted"`
	} `json:"answerBox"`
	KnowledgeGraph *struct {
		Title       string            `json:"title"`
		Type        string            `json:"type"`
		Description string            `json:"description"`
		Attributes  map[string]string `json:"attributes"`
	} `json:"knowledgeGraph"`
	Organic []struct {
		Title      string            `json:"title"`
		Link       string            `json:"link"`
		Snippet    string            `json:"snippet"`
		Attributes map[string]string `json:"attributes"`
	} `json:"organic"`
}

// Search runs query and returns the condensed answer text.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", errors.New("serper: query cannot be empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	body, err := json.Marshal(searchRequest{Q: query, Num: c.numResults})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("serper returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode serper response: %w", err)
	}
	return Summarize(&result, c.numResults), nil
}

// Summarize condenses a response: a direct answer wins outright; otherwise the
// knowledge graph and up to n organic snippets are joined with spaces.
func Summarize(r *Response, n int) string {
	if ab := r.AnswerBox; ab != nil {
		switch {
		case ab.Answer != "":
			return ab.Answer
		case ab.Snippet != "":
			return strings.ReplaceAll(ab.Snippet, "\n", " ")
		case len(ab.SnippetHighlighted) > 0:
			return strings.Join(ab.SnippetHighlighted, " ")
		}
	}

	var snippets []string
	if kg := r.KnowledgeGraph; kg != nil {
		if kg.Type != "" {
			snippets = append(snippets, fmt.Sprintf("%s: %s.", kg.Title, kg.Type))
		}
		if kg.Description != "" {
			snippets = append(snippets, kg.Description)
		}
		for _, k := range sortedKeys(kg.Attributes) {
			snippets = append(snippets, fmt.Sprintf("%s %s: %s.", kg.Title, k, kg.Attributes[k]))
		}
	}
	for i, res := range r.Organic {
		if n > 0 && i >= n {
			break
		}
		if res.Snippet != "" {
			snippets = append(snippets, res.Snippet)
		}
		for _, k := range sortedKeys(res.Attributes) {
			snippets = append(snippets, fmt.Sprintf("%s: %s.", k, res.Attributes[k]))
		}
	}
	if len(snippets) == 0 {
		return NoResult
	}
	return strings.Join(snippets, " ")
}

// sortedKeys returns m's keys in lexical order so output is stable.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
