package feed

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Fetcher retrieves and parses one feed document into normalized items.
// Implementations must honor the context for cancellation and deadlines.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// HTTPFetcher downloads feed documents over HTTP and parses them with
// gofeed. Failures are reported as FetchError or ParseError so callers can
// tell an unreachable feed from a malformed one.
type HTTPFetcher struct {
	httpClient       *http.Client
	parser           *gofeed.Parser
	userAgent        string
	maxSummaryLength int
}

func NewHTTPFetcher(httpClient *http.Client, userAgent string, maxSummaryLength int) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient:       httpClient,
		parser:           gofeed.NewParser(),
		userAgent:        userAgent,
		maxSummaryLength: maxSummaryLength,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	data, err := f.download(ctx, url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	parsed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		items = append(items, f.normalizeItem(item))
	}

	return &FetchResult{Title: parsed.Title, Items: items}, nil
}

func (f *HTTPFetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (f *HTTPFetcher) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		Title: strings.TrimSpace(item.Title),
		Link:  strings.TrimSpace(item.Link),
	}

	// Prefer the full content element, fall back to the summary
	content := cmp.Or(item.Content, item.Description)
	normalized.Content = truncate(stripHTML(content), f.maxSummaryLength)

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		normalized.Author = strings.TrimSpace(item.Authors[0].Name)
	} else if item.Author != nil {
		normalized.Author = strings.TrimSpace(item.Author.Name)
	}

	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		normalized.PublishedAt = &t
	} else if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		normalized.PublishedAt = &t
	}

	return normalized
}
