package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/TobiSchelling/PostGenerator/internal/httputil"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

const (
	duckDuckGoURL = "https://html.duckduckgo.com/html/"
	maxDDGPages   = 5
)

// DuckDuckGo scrapes the HTML results page of DuckDuckGo.
type DuckDuckGo struct {
	BaseURL    string
	client     *http.Client
	userAgent  string
	maxRetries int
	log        *logger.Logger
}

// NewDuckDuckGo creates a new DuckDuckGo backend.
func NewDuckDuckGo(opts HTTPOptions, log *logger.Logger) *DuckDuckGo {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &DuckDuckGo{
		BaseURL:    duckDuckGoURL,
		client:     &http.Client{Timeout: opts.Timeout},
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		log:        log,
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search follows the "Next" form across result pages until maxResults
// unique links are collected.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int, recency Recency) ([]Result, error) {
	params := url.Values{"q": {query}, "kl": {"wt-wt"}}
	if df := recency.code(); df != "" {
		params.Set("df", df)
	}

	seen := make(map[string]struct{})
	var results []Result

	for page := 0; page < maxDDGPages && params != nil; page++ {
		doc, err := d.page(ctx, params)
		if err != nil {
			return nil, &QueryError{Backend: d.Name(), Query: query, Err: err}
		}

		before := len(results)
		doc.Find("div.result").Each(func(_ int, s *goquery.Selection) {
			if s.HasClass("result--ad") || (maxResults > 0 && len(results) >= maxResults) {
				return
			}
			link := s.Find("a.result__a").First()
			href := unwrapDDGLink(link.AttrOr("href", ""))
			if href == "" {
				return
			}
			if _, dup := seen[href]; dup {
				return
			}
			seen[href] = struct{}{}
			results = append(results, Result{
				Title:   strings.TrimSpace(link.Text()),
				URL:     href,
				Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").Text()), " "),
			})
		})

		if len(results) == before || (maxResults > 0 && len(results) >= maxResults) {
			break
		}
		params = nextPageParams(doc)
	}

	d.log.Debug("DuckDuckGo results", "query", query, "count", len(results))
	return results, nil
}

func (d *DuckDuckGo) page(ctx context.Context, params url.Values) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, d.client, req, d.maxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// DuckDuckGo answers 202 with a challenge page when rate limiting.
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}
	return doc, nil
}

// nextPageParams reads the hidden inputs of the "Next" form, or nil on the
// last page.
func nextPageParams(doc *goquery.Document) url.Values {
	var params url.Values
	doc.Find(".nav-link form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if !strings.EqualFold(form.Find(`input[type="submit"]`).AttrOr("value", ""), "next") {
			return true
		}
		params = url.Values{}
		form.Find(`input[type="hidden"]`).Each(func(_ int, in *goquery.Selection) {
			if name := in.AttrOr("name", ""); name != "" {
				params.Set(name, in.AttrOr("value", ""))
			}
		})
		return false
	})
	return params
}

// unwrapDDGLink resolves DuckDuckGo redirect links and drops ad links.
func unwrapDDGLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		if u.Path == "/l/" {
			return u.Query().Get("uddg")
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
