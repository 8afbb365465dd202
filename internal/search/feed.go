package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/PostGenerator/internal/httputil"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

// Feed queries a search engine that answers with RSS or Atom, such as
// Bing's format=rss endpoint. URLTemplate must contain {query}.
type Feed struct {
	URLTemplate string
	client      *http.Client
	userAgent   string
	maxRetries  int
	log         *logger.Logger
	now         func() time.Time
}

// NewFeed creates a new feed backend.
func NewFeed(urlTemplate string, opts HTTPOptions, log *logger.Logger) *Feed {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Feed{
		URLTemplate: urlTemplate,
		client:      &http.Client{Timeout: opts.Timeout},
		userAgent:   opts.UserAgent,
		maxRetries:  opts.MaxRetries,
		log:         log,
		now:         time.Now,
	}
}

func (f *Feed) Name() string { return "feed" }

func (f *Feed) Search(ctx context.Context, query string, maxResults int, recency Recency) ([]Result, error) {
	feed, err := f.fetch(ctx, query)
	if err != nil {
		return nil, &QueryError{Backend: f.Name(), Query: query, Err: err}
	}

	cutoff := recency.Cutoff(f.now())
	var results []Result
	for _, item := range feed.Items {
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
		r, ok := parseItem(item)
		if !ok || !isWithinWindow(item, cutoff) {
			continue
		}
		results = append(results, r)
	}

	f.log.Debug("Feed results", "query", query, "count", len(results))
	return results, nil
}

func (f *Feed) fetch(ctx context.Context, query string) (*gofeed.Feed, error) {
	feedURL := strings.ReplaceAll(f.URLTemplate, "{query}", url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.maxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return feed, nil
}

func parseItem(item *gofeed.Item) (Result, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	if !strings.HasPrefix(link, "http") {
		return Result{}, false
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return Result{}, false
	}

	snippet := item.Description
	if snippet == "" {
		snippet = item.Content
	}

	return Result{Title: title, URL: link, Snippet: plainText(snippet)}, true
}

// isWithinWindow keeps undated items.
func isWithinWindow(item *gofeed.Item, cutoff time.Time) bool {
	if cutoff.IsZero() {
		return true
	}
	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}
	if published == nil {
		return true
	}
	return !published.Before(cutoff)
}
