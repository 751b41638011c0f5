package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// PageMeta is what we can learn about an event from its source page.
type PageMeta struct {
	Title       string
	Description string
}

// PageExtractor fetches an event's source page and pulls out a usable
// description: Open Graph metadata first, readable main content as fallback.
// Everything here is best effort; callers treat a failure as "no enrichment".
type PageExtractor struct {
	httpClient *http.Client
	userAgent  string
}

const maxPageBytes = 1 << 20 // 1 MB
const maxDescriptionChars = 500

func NewPageExtractor(timeout time.Duration, userAgent string) *PageExtractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; eventchat/1.0)"
	}
	return &PageExtractor{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Extract fetches pageURL and returns title/description metadata.
func (p *PageExtractor) Extract(ctx context.Context, pageURL string) (*PageMeta, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	html := string(data)

	meta := &PageMeta{}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		meta.Title = metaContent(doc, `meta[property="og:title"]`)
		if meta.Title == "" {
			meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
		meta.Description = metaContent(doc, `meta[property="og:description"]`)
		if meta.Description == "" {
			meta.Description = metaContent(doc, `meta[name="description"]`)
		}
	}

	if meta.Description == "" {
		if article, err := readability.FromReader(strings.NewReader(html), parsedURL); err == nil {
			meta.Description = condense(article.TextContent)
			if meta.Title == "" {
				meta.Title = article.Title
			}
		}
	}

	meta.Description = truncate(condense(meta.Description), maxDescriptionChars)
	if meta.Title == "" && meta.Description == "" {
		return nil, fmt.Errorf("no usable metadata on page")
	}
	return meta, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func condense(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
