// Package search runs web queries against pluggable backends.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/TobiSchelling/PostGenerator/internal/cascade"
	"github.com/TobiSchelling/PostGenerator/internal/config"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

// Result is one ranked search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"href"`
	Snippet string `json:"body"`
}

// Recency restricts results to a recent time window.
type Recency string

const (
	RecencyAny   Recency = ""
	RecencyDay   Recency = "day"
	RecencyWeek  Recency = "week"
	RecencyMonth Recency = "month"
	RecencyYear  Recency = "year"
)

// ParseRecency accepts the long names and the single-letter forms d/w/m/y.
func ParseRecency(s string) (Recency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return RecencyAny, nil
	case "d", "day":
		return RecencyDay, nil
	case "w", "week":
		return RecencyWeek, nil
	case "m", "month":
		return RecencyMonth, nil
	case "y", "year":
		return RecencyYear, nil
	}
	return RecencyAny, fmt.Errorf("unknown recency %q", s)
}

// Cutoff returns the oldest acceptable publication time, or the zero time
// when any age is acceptable.
func (r Recency) Cutoff(now time.Time) time.Time {
	switch r {
	case RecencyDay:
		return now.AddDate(0, 0, -1)
	case RecencyWeek:
		return now.AddDate(0, 0, -7)
	case RecencyMonth:
		return now.AddDate(0, -1, 0)
	case RecencyYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

func (r Recency) code() string {
	if r == RecencyAny {
		return ""
	}
	return string(r)[:1]
}

// Provider executes one query. Implementations return a *QueryError on
// failure; callers isolate failures per query.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int, recency Recency) ([]Result, error)
}

// QueryError reports a failed query against one backend.
type QueryError struct {
	Backend string
	Query   string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("search %s %q: %v", e.Backend, e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ErrNotConfigured is returned by backends missing credentials.
var ErrNotConfigured = errors.New("backend not configured")

// HTTPOptions are shared by the HTTP-based backends.
type HTTPOptions struct {
	Timeout    time.Duration
	UserAgent  string
	MaxRetries int
}

// Chain tries its backends in order and returns the first non-empty result.
type Chain struct {
	providers []Provider
	log       *logger.Logger
}

// NewChain creates a fallback chain over providers.
func NewChain(log *logger.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, log: log}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ">")
}

// Search returns the results of the first backend that produced any. An
// empty slice with a nil error means every backend answered with nothing.
func (c *Chain) Search(ctx context.Context, query string, maxResults int, recency Recency) ([]Result, error) {
	strategies := make([]cascade.Strategy[[]Result], len(c.providers))
	for i, p := range c.providers {
		strategies[i] = cascade.Strategy[[]Result]{
			Name: p.Name(),
			Attempt: func(ctx context.Context) ([]Result, error) {
				results, err := p.Search(ctx, query, maxResults, recency)
				if err != nil {
					return nil, err
				}
				if len(results) == 0 {
					return nil, cascade.ErrNoResult
				}
				return results, nil
			},
		}
	}

	results, backend, err := cascade.Run(ctx, c.log, strategies...)
	if err != nil {
		var exhausted *cascade.ExhaustedError
		if errors.As(err, &exhausted) && exhausted.OnlyNoResult() {
			return nil, nil
		}
		return nil, &QueryError{Backend: c.Name(), Query: query, Err: err}
	}

	c.log.Debug("Search answered", "backend", backend, "query", query, "results", len(results))
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// New builds the configured backend chain.
func New(cfg config.Search, log *logger.Logger) (Provider, error) {
	opts := HTTPOptions{
		Timeout:    cfg.Timeout,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
	}

	var providers []Provider
	for _, name := range cfg.Backends {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "duckduckgo", "ddg":
			providers = append(providers, NewDuckDuckGo(opts, log))
		case "feed", "rss":
			if cfg.FeedURL == "" {
				return nil, fmt.Errorf("feed backend requires search.feed_url")
			}
			providers = append(providers, NewFeed(cfg.FeedURL, opts, log))
		case "newsapi":
			n := NewNewsAPI(cfg.NewsAPIKeyEnv, opts, log)
			if !n.IsConfigured() {
				log.Warn("NewsAPI key not set, skipping backend", "env", cfg.NewsAPIKeyEnv)
				continue
			}
			providers = append(providers, n)
		default:
			return nil, fmt.Errorf("unknown search backend %q", name)
		}
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no search backend available")
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return NewChain(log, providers...), nil
}

// plainText strips markup from a snippet.
func plainText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
