package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/PostGenerator/internal/httputil"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPI searches news articles through newsapi.org.
type NewsAPI struct {
	BaseURL    string
	apiKey     string
	client     *http.Client
	maxRetries int
	log        *logger.Logger
	now        func() time.Time
}

// NewNewsAPI creates a NewsAPI backend reading its key from apiKeyEnv.
func NewNewsAPI(apiKeyEnv string, opts HTTPOptions, log *logger.Logger) *NewsAPI {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &NewsAPI{
		BaseURL:    newsAPIBaseURL,
		apiKey:     os.Getenv(apiKeyEnv),
		client:     &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
		log:        log,
		now:        time.Now,
	}
}

// IsConfigured returns whether the API key is available.
func (n *NewsAPI) IsConfigured() bool {
	return n.apiKey != ""
}

func (n *NewsAPI) Name() string { return "newsapi" }

func (n *NewsAPI) Search(ctx context.Context, query string, maxResults int, recency Recency) ([]Result, error) {
	if n.apiKey == "" {
		return nil, &QueryError{Backend: n.Name(), Query: query, Err: ErrNotConfigured}
	}

	pageSize := maxResults
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	params := url.Values{
		"q":        {query},
		"language": {"en"},
		"pageSize": {strconv.Itoa(pageSize)},
		"sortBy":   {"relevancy"},
	}
	if cutoff := recency.Cutoff(n.now()); !cutoff.IsZero() {
		params.Set("from", cutoff.Format("2006-01-02"))
		params.Set("to", n.now().Format("2006-01-02"))
	}

	results, err := n.do(ctx, params)
	if err != nil {
		return nil, &QueryError{Backend: n.Name(), Query: query, Err: err}
	}
	n.log.Debug("NewsAPI results", "query", query, "count", len(results))
	return results, nil
}

func (n *NewsAPI) do(ctx context.Context, params url.Values) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)

	resp, err := httputil.DoWithRetry(ctx, n.client, req, n.maxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("newsapi returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Status   string `json:"status"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Content     string `json:"content"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q", payload.Status)
	}

	var results []Result
	for _, a := range payload.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		if a.Title == "[Removed]" || a.URL == "https://removed.com" {
			continue
		}
		snippet := a.Description
		if snippet == "" {
			snippet = a.Content
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(a.Title),
			URL:     a.URL,
			Snippet: strings.TrimSpace(snippet),
		})
	}
	return results, nil
}
