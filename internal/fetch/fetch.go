package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxChars  = 6000
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	maxBodyBytes = 5 << 20
)

// skippedElements never contribute visible text.
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"header": true,
	"footer": true,
}

// Page is the cleaned text of one fetched source.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Options configures a Fetcher. Zero values fall back to the defaults.
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	MaxChars    int
	Concurrency int
}

// Fetcher retrieves pages and reduces them to length-capped visible text.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxChars    int
	concurrency int
	log         *logger.Logger
}

// New creates a new fetcher.
func New(opts Options, log *logger.Logger) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   opts.UserAgent,
		maxChars:    opts.MaxChars,
		concurrency: opts.Concurrency,
		log:         log,
	}
}

// Fetch returns the cleaned page text, or false when the page could not be
// retrieved or had no text. Failures are logged and never retried.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (Page, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		f.log.Warn("Failed to build request", "url", pageURL, "error", err)
		return Page{}, false
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("Error fetching page", "url", pageURL, "error", err)
		return Page{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.log.Warn("Failed to fetch page", "url", pageURL, "status", resp.StatusCode)
		return Page{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		f.log.Warn("Error reading page body", "url", pageURL, "error", err)
		return Page{}, false
	}

	text, err := VisibleText(body)
	if err != nil {
		f.log.Warn("Error parsing page", "url", pageURL, "error", err)
		return Page{}, false
	}

	title := ""
	parsedURL, _ := url.Parse(pageURL)
	if article, err := readability.FromReader(bytes.NewReader(body), parsedURL); err == nil {
		title = strings.TrimSpace(article.Title)
		if text == "" {
			text = collapseSpace(article.TextContent)
		}
	}

	if text == "" {
		f.log.Debug("No extractable text", "url", pageURL)
		return Page{}, false
	}

	return Page{URL: pageURL, Title: title, Text: Truncate(text, f.maxChars)}, true
}

// FetchAll fetches every URL concurrently and returns the successful pages
// in input order. A failed fetch never cancels its siblings.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Page {
	results := make([]*Page, len(urls))

	var g errgroup.Group
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}
	for i, u := range urls {
		g.Go(func() error {
			if page, ok := f.Fetch(ctx, u); ok {
				results[i] = &page
			}
			return nil
		})
	}
	_ = g.Wait()

	pages := make([]Page, 0, len(urls))
	for _, p := range results {
		if p != nil {
			pages = append(pages, *p)
		}
	}
	return pages
}

// VisibleText extracts the text nodes of an HTML document, skipping
// scripts, styles, navigation, headers and footers. Text runs are trimmed
// and joined with single spaces.
func VisibleText(document []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(document))
	if err != nil {
		return "", err
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
		case html.TextNode:
			if s := collapseSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return strings.Join(parts, " "), nil
}

// Truncate cuts s to at most max characters (runes).
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
