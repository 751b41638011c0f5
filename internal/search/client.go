package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventchat/internal/config"
	"eventchat/internal/event"
	"eventchat/internal/tools"
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

var ErrNoProvider = errors.New("no search provider configured")

// Client queries a Serper-shaped search API with a fallback provider. The
// primary provider sits behind a circuit breaker so a flapping upstream does
// not slow every turn down to its timeout.
type Client struct {
	primary       config.SearchProviderConfig
	fallback      config.SearchProviderConfig
	httpClient    *http.Client
	maxResults    int
	excludedHosts []string
	excludedTitle []string
	breaker       *tools.CircuitBreaker
}

var defaultExcludedTitlePatterns = []string{"how to", "guide to", "what is", "tips for"}

func NewClient(cfg config.SearchConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	patterns := cfg.ExcludedTitlePatterns
	if len(patterns) == 0 {
		patterns = defaultExcludedTitlePatterns
	}
	return &Client{
		primary:       cfg.Primary,
		fallback:      cfg.Fallback,
		httpClient:    &http.Client{Timeout: timeout},
		maxResults:    cfg.MaxResults,
		excludedHosts: cfg.ExcludedDomains,
		excludedTitle: patterns,
		breaker:       tools.NewCircuitBreaker(3, 2*time.Minute),
	}
}

// Search queries the primary provider, falling back to the secondary on
// failure. Results are noise-filtered and deduplicated in-batch by URL and
// near-exact title similarity.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	var results []Result

	if c.primary.URL != "" {
		err := c.breaker.Call(func() error {
			var callErr error
			results, callErr = c.query(ctx, c.primary, query)
			return callErr
		})
		if err == nil && len(results) > 0 {
			return c.clean(results), nil
		}
	}

	if c.fallback.URL != "" {
		fallbackResults, err := c.query(ctx, c.fallback, query)
		if err != nil {
			return nil, fmt.Errorf("search failed on both providers: %w", err)
		}
		return c.clean(fallbackResults), nil
	}

	if c.primary.URL == "" {
		return nil, ErrNoProvider
	}
	return nil, errors.New("search provider unavailable")
}

func (c *Client) query(ctx context.Context, provider config.SearchProviderConfig, query string) ([]Result, error) {
	payload, _ := json.Marshal(map[string]string{"q": query})
	req, err := http.NewRequestWithContext(ctx, "POST", provider.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		req.Header.Set("X-API-KEY", provider.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("search provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Organic))
	for _, r := range parsed.Organic {
		results = append(results, Result{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}
	return results, nil
}

// clean applies the noise filter, deduplicates and truncates to maxResults.
func (c *Client) clean(results []Result) []Result {
	out := make([]Result, 0, len(results))
	seenLinks := map[string]struct{}{}

	for _, r := range results {
		if r.Title == "" || c.excludedByTitle(r.Title) || c.excludedByDomain(r.Link) {
			continue
		}
		if r.Link != "" {
			if _, dup := seenLinks[r.Link]; dup {
				continue
			}
		}
		if hasSimilarTitle(out, r.Title) {
			continue
		}
		if r.Link != "" {
			seenLinks[r.Link] = struct{}{}
		}
		out = append(out, r)
		if c.maxResults > 0 && len(out) >= c.maxResults {
			break
		}
	}
	return out
}

func (c *Client) excludedByTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, pattern := range c.excludedTitle {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func (c *Client) excludedByDomain(link string) bool {
	if link == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range c.excludedHosts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func hasSimilarTitle(existing []Result, title string) bool {
	for _, r := range existing {
		if event.SimilarTitles(r.Title, title) {
			return true
		}
	}
	return false
}
