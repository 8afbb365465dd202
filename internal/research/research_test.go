package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/fetch"
	"github.com/TobiSchelling/PostGenerator/internal/llm"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
	"github.com/TobiSchelling/PostGenerator/internal/search"
	"github.com/TobiSchelling/PostGenerator/internal/synth"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose stats worker starts at init.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

type searchCall struct {
	query      string
	maxResults int
	recency    search.Recency
}

type fakeSearch struct {
	mu      sync.Mutex
	calls   []searchCall
	respond func(query string, maxResults int) ([]search.Result, error)
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) Search(ctx context.Context, query string, maxResults int, recency search.Recency) ([]search.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{query, maxResults, recency})
	f.mu.Unlock()
	return f.respond(query, maxResults)
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls [][]string
	pages map[string]string
}

func (f *fakeFetcher) FetchAll(ctx context.Context, urls []string) []fetch.Page {
	f.mu.Lock()
	f.calls = append(f.calls, urls)
	f.mu.Unlock()

	var pages []fetch.Page
	for _, u := range urls {
		if text, ok := f.pages[u]; ok {
			pages = append(pages, fetch.Page{URL: u, Text: text})
		}
	}
	return pages
}

type fakeLLM struct {
	mu        sync.Mutex
	requests  []llm.Request
	respond   func(req llm.Request) (string, error)
	citations []string
}

func (f *fakeLLM) Name() string       { return "fake" }
func (f *fakeLLM) IsConfigured() bool { return true }

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	text, err := f.respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Text: text, Citations: f.citations}, nil
}

func (f *fakeLLM) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

const synthesizedDocument = `{
	"day": 99, "title": "Attention Basics", "hook": "In 2017 one paper changed translation. It cut training cost by 90%.",
	"sections": [
		{"header": "The Problem", "content": "RNNs forget distant words.", "example_use_case": "Google Translate in 2016 garbled long sentences."},
		{"header": "Before vs After", "content": null, "comparison": {"items": [{"dimension": "Context", "before": "short", "after": "long"}]}},
		{"header": "Trade-offs", "tradeoffs": {"pros": ["parallel"], "cons": ["memory"], "constraints": ["GPU"]}}
	],
	"key_takeaways": ["Use attention for long inputs", "Measure memory at 8k tokens", "Compare against Mamba"],
	"call_to_action": "Where would you use attention in your stack?",
	"hashtags": ["AI"], "sources": []
}`

func numberedResults(prefix string, from, to int) []search.Result {
	var out []search.Result
	for i := from; i <= to; i++ {
		out = append(out, search.Result{Title: fmt.Sprintf("r%d", i), URL: fmt.Sprintf("%s/%d", prefix, i)})
	}
	return out
}

func attentionTopic() content.DailyTopic {
	return content.DailyTopic{
		Day:               3,
		Title:             "Attention Basics",
		LearningObjective: "Understand query, key and value",
		Difficulty:        content.Beginner,
		Type:              content.TypeArticle,
		SearchQueries:     []string{"attention mechanism explained", "transformer attention intro"},
	}
}

func newOrchestrator(sp search.Provider, f PageFetcher, p llm.Provider) *Orchestrator {
	return New(sp, f, synth.New(p, 4096, logger.Nop()),
		Options{Recency: search.RecencyYear, Temperature: 0.5}, logger.Nop())
}

func TestResearchTopicCapsCandidatesAtTen(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		if q == "attention mechanism explained" {
			return numberedResults("https://a.example", 1, 10), nil
		}
		return numberedResults("https://a.example", 3, 12), nil
	}}
	f := &fakeFetcher{pages: map[string]string{"https://a.example/1": "In 2017 attention cut cost by 90%."}}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return synthesizedDocument, nil }}

	doc := newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())

	require.Len(t, sp.calls, 2)
	for _, c := range sp.calls {
		assert.Equal(t, 10, c.maxResults)
		assert.Equal(t, search.RecencyYear, c.recency)
	}
	assert.Equal(t, "attention mechanism explained", sp.calls[0].query)

	require.Len(t, f.calls, 1)
	want := make([]string, 10)
	for i := range want {
		want[i] = fmt.Sprintf("https://a.example/%d", i+1)
	}
	if diff := cmp.Diff(want, f.calls[0]); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3, doc.Day)
	assert.Equal(t, content.TypeArticle, doc.Type)
	assert.Equal(t, content.StatusResearched, doc.Status)
	assert.Equal(t, content.OutcomeSynthesized, doc.Outcome)
	assert.Equal(t, []string{"https://a.example/1"}, doc.Sources)
	assert.False(t, doc.Degraded())
}

func TestResearchTopicSendsContextToSynthesizer(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return numberedResults("https://b.example", 1, 2), nil
	}}
	f := &fakeFetcher{pages: map[string]string{
		"https://b.example/1": "first page",
		"https://b.example/2": "second page",
	}}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return synthesizedDocument, nil }}

	newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())

	require.Equal(t, 1, p.count())
	req := p.requests[0]
	assert.Equal(t, synth.ResearchSystem, req.System)
	assert.Equal(t, 0.5, req.Temperature)
	require.NotNil(t, req.Schema)
	assert.Contains(t, req.Prompt,
		"Source: https://b.example/1\nContent: first page\n\n---\n\nSource: https://b.example/2\nContent: second page")
}

func TestResearchTopicAllQueriesFail(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return nil, &search.QueryError{Backend: "fake", Query: q, Err: errors.New("rate limited")}
	}}
	f := &fakeFetcher{}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return synthesizedDocument, nil }}

	doc := newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())

	assert.Len(t, sp.calls, 2)
	assert.Empty(t, f.calls)
	assert.Zero(t, p.count())
	assert.Empty(t, doc.Sources)
	assert.NotNil(t, doc.Sources)
	assert.Equal(t, NoEvidenceSummary, doc.Summary)
	assert.Equal(t, content.OutcomeNoSources, doc.Outcome)
	assert.Equal(t, content.StatusResearched, doc.Status)
	assert.Equal(t, "Attention Basics", doc.Title)
}

func TestResearchTopicOneQueryFails(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		if q == "attention mechanism explained" {
			return nil, errors.New("boom")
		}
		return numberedResults("https://c.example", 1, 3), nil
	}}
	f := &fakeFetcher{pages: map[string]string{"https://c.example/2": "text"}}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return synthesizedDocument, nil }}

	doc := newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())

	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"https://c.example/1", "https://c.example/2", "https://c.example/3"}, f.calls[0])
	assert.Equal(t, content.OutcomeSynthesized, doc.Outcome)
}

func TestResearchTopicAllFetchesAbsent(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return numberedResults("https://d.example", 1, 3), nil
	}}
	f := &fakeFetcher{}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return synthesizedDocument, nil }}

	doc := newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())

	assert.Zero(t, p.count())
	assert.Equal(t, []string{"https://d.example/1", "https://d.example/2", "https://d.example/3"}, doc.Sources)
	assert.Equal(t, NoEvidenceSummary, doc.Summary)
	assert.Equal(t, content.OutcomeNoSources, doc.Outcome)
	assert.Empty(t, doc.Sections)
}

func TestResearchTopicSynthesisFailure(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return numberedResults("https://e.example", 1, 2), nil
	}}
	f := &fakeFetcher{pages: map[string]string{"https://e.example/1": "text"}}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return "", errors.New("model unavailable") }}

	doc := newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())

	assert.Equal(t, "Attention Basics", doc.Title)
	assert.Equal(t, 3, doc.Day)
	assert.Equal(t, SynthesisFailedHook, doc.Hook)
	assert.Empty(t, doc.Sections)
	assert.Empty(t, doc.KeyTakeaways)
	assert.Empty(t, doc.CallToAction)
	assert.Equal(t, []string{"https://e.example/1", "https://e.example/2"}, doc.Sources)
	assert.Equal(t, content.OutcomeSynthesisFailed, doc.Outcome)
	assert.True(t, doc.Degraded())
}

func TestResearchTopicMalformedModelOutput(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return numberedResults("https://f.example", 1, 1), nil
	}}
	f := &fakeFetcher{pages: map[string]string{"https://f.example/1": "text"}}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return `{"title": "only a title"}`, nil }}

	doc := newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())

	assert.Equal(t, content.OutcomeSynthesisFailed, doc.Outcome)
	assert.Equal(t, []string{"https://f.example/1"}, doc.Sources)
}

func TestResearchTopicWithoutQueries(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) { return nil, nil }}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return synthesizedDocument, nil }}

	topic := attentionTopic()
	topic.SearchQueries = nil
	doc := newOrchestrator(sp, &fakeFetcher{}, p).ResearchTopic(context.Background(), topic)

	assert.Empty(t, sp.calls)
	assert.Equal(t, content.OutcomeNoSources, doc.Outcome)
}

func TestResearchTopicKeepsModelSources(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return numberedResults("https://g.example", 1, 1), nil
	}}
	f := &fakeFetcher{pages: map[string]string{"https://g.example/1": "text"}}
	withSources := strings.Replace(synthesizedDocument, `"sources": []`, `"sources": ["https://g.example/1"]`, 1)
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return withSources, nil }}

	doc := newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())
	assert.Equal(t, []string{"https://g.example/1"}, doc.Sources)
}

func TestResearchTopicRecordsPolicyViolations(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return numberedResults("https://h.example", 1, 1), nil
	}}
	// The 90% in the hook is not in the fetched text.
	f := &fakeFetcher{pages: map[string]string{"https://h.example/1": "attention in 2017"}}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return synthesizedDocument, nil }}

	doc := newOrchestrator(sp, f, p).ResearchTopic(context.Background(), attentionTopic())

	assert.Equal(t, content.OutcomeSynthesized, doc.Outcome)
	assert.NotEmpty(t, doc.Violations)
}

func TestResearchAllPreservesOrder(t *testing.T) {
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return []search.Result{{URL: "https://x.example/" + q}}, nil
	}}
	f := &fakeFetcher{}
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return synthesizedDocument, nil }}

	var topics []content.DailyTopic
	for i := 1; i <= 6; i++ {
		topics = append(topics, content.DailyTopic{
			Day: i, Title: fmt.Sprintf("Topic %d", i), Difficulty: content.Advanced,
			SearchQueries: []string{fmt.Sprintf("q%d", i)},
		})
	}

	docs := newOrchestrator(sp, f, p).ResearchAll(context.Background(), topics, 2)

	require.Len(t, docs, 6)
	for i, d := range docs {
		assert.Equal(t, i+1, d.Day)
		assert.Equal(t, fmt.Sprintf("Topic %d", i+1), d.Title)
		assert.Equal(t, []string{fmt.Sprintf("https://x.example/q%d", i+1)}, d.Sources)
	}
}

func TestPerQueryResults(t *testing.T) {
	assert.Equal(t, 10, PerQueryResults(content.Beginner, 2))
	assert.Equal(t, 11, PerQueryResults(content.Intermediate, 3))
	assert.Equal(t, 9, PerQueryResults(content.Advanced, 5))
	assert.Equal(t, 1, PerQueryResults(content.Beginner, 40))
	assert.Equal(t, 0, PerQueryResults(content.Beginner, 0))
}

func TestDedup(t *testing.T) {
	in := []string{"a", "b", "a", " ", "c", "b", "d"}
	got := Dedup(in, 3)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, got, Dedup(got, 3))

	assert.Equal(t, []string{"a", "b", "c", "d"}, Dedup(in, 0))
	assert.Empty(t, Dedup(nil, 10))
}

func TestFormatContext(t *testing.T) {
	got := FormatContext([]fetch.Page{{URL: "u1", Text: "t1"}, {URL: "u2", Text: "t2"}})
	assert.Equal(t, "Source: u1\nContent: t1\n\n---\n\nSource: u2\nContent: t2", got)
}
