package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/llm"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
	"github.com/TobiSchelling/PostGenerator/internal/search"
	"github.com/TobiSchelling/PostGenerator/internal/synth"
)

var ragAngle = content.ResearchAngle{Angle: "Benchmarks", Query: "RAG vector database benchmarks"}

func noSearch() *fakeSearch {
	return &fakeSearch{respond: func(string, int) ([]search.Result, error) { return nil, nil }}
}

func TestAnglePlannerUsesModelAngles(t *testing.T) {
	p := &fakeLLM{respond: func(req llm.Request) (string, error) {
		return `{"angles": [
			{"angle": " Deep Dive ", "query": "rag internals"},
			{"angle": "Costs", "query": "rag cost"},
			{"angle": "Extra", "query": "dropped"}
		]}`, nil
	}}
	planner := NewAnglePlanner(synth.New(p, 0, logger.Nop()), 2, 0.7, logger.Nop())

	angles := planner.Plan(context.Background(), "RAG", []string{"Intro to RAG"})

	assert.Equal(t, []content.ResearchAngle{
		{Angle: "Deep Dive", Query: "rag internals"},
		{Angle: "Costs", Query: "rag cost"},
	}, angles)
	require.Equal(t, 1, p.count())
	assert.Equal(t, synth.AngleSystem, p.requests[0].System)
	assert.Contains(t, p.requests[0].Prompt, `"Intro to RAG"`)
	assert.Contains(t, p.requests[0].Prompt, "Generate 2 DISTINCT")
}

func TestAnglePlannerFallsBack(t *testing.T) {
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return "", errors.New("offline") }}
	planner := NewAnglePlanner(synth.New(p, 0, logger.Nop()), 0, 0.7, logger.Nop())

	angles := planner.Plan(context.Background(), "RAG", nil)

	assert.Equal(t, FallbackAngles("RAG"), angles)
	require.Len(t, angles, 4)
	assert.Equal(t, "General Overview", angles[0].Angle)
	assert.Equal(t, "RAG overview guide", angles[0].Query)
	assert.Equal(t, "future of RAG 2025", angles[3].Query)
}

func TestAngleWorkerGrounded(t *testing.T) {
	p := &fakeLLM{respond: func(req llm.Request) (string, error) {
		return "Here you go:\n" + `{"title": "Benchmarks that matter", "type": "FORUM", "sources": ["https://forum.example/t/1"], "summary": "Numbers."}`, nil
	}}
	sp := noSearch()
	w := NewAngleWorker(synth.New(p, 0, logger.Nop()), sp, logger.Nop())

	got := w.Execute(context.Background(), ragAngle)

	assert.Equal(t, "Benchmarks that matter", got.Title)
	assert.Equal(t, content.TypeForum, got.Type)
	assert.Equal(t, []string{"https://forum.example/t/1"}, got.Sources)
	assert.Equal(t, "Numbers.", got.Summary)
	assert.Equal(t, ragAngle, got.Angle)
	assert.Equal(t, content.OutcomeSynthesized, got.Outcome)
	assert.Empty(t, sp.calls)

	require.Equal(t, 1, p.count())
	assert.True(t, p.requests[0].Grounded)
	assert.Nil(t, p.requests[0].Schema)
	assert.True(t, strings.Contains(p.requests[0].Prompt, ragAngle.Query))
}

func TestAngleWorkerGroundedUsesCitations(t *testing.T) {
	p := &fakeLLM{
		respond: func(llm.Request) (string, error) {
			return `{"title": "Benchmarks that matter", "type": "article", "sources": [], "summary": "Numbers."}`, nil
		},
		citations: []string{"vertexaisearch:grounding", "https://bench.example/rag"},
	}
	sp := noSearch()
	w := NewAngleWorker(synth.New(p, 0, logger.Nop()), sp, logger.Nop())

	got := w.Execute(context.Background(), ragAngle)

	assert.Equal(t, "Benchmarks that matter", got.Title)
	assert.Equal(t, []string{"https://bench.example/rag"}, got.Sources)
	assert.Equal(t, content.OutcomeSynthesized, got.Outcome)
	assert.Empty(t, sp.calls)
}

func TestAngleWorkerGroundedWithoutAnyURL(t *testing.T) {
	p := &fakeLLM{respond: func(llm.Request) (string, error) {
		return `{"title": "T", "type": "link", "sources": []}`, nil
	}}
	w := NewAngleWorker(synth.New(p, 0, logger.Nop()), noSearch(), logger.Nop())

	got := w.Execute(context.Background(), ragAngle)

	assert.Equal(t, content.OutcomePlaceholder, got.Outcome)
}

func TestAngleWorkerFallsBackToSearch(t *testing.T) {
	// A relative URL fails the grounded result check.
	p := &fakeLLM{respond: func(llm.Request) (string, error) {
		return `{"title": "T", "type": "link", "sources": ["/relative"]}`, nil
	}}
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return []search.Result{
			{Title: "Top hit", URL: "https://top.example", Snippet: "best"},
			{Title: "Second", URL: "https://second.example"},
		}, nil
	}}
	w := NewAngleWorker(synth.New(p, 0, logger.Nop()), sp, logger.Nop())

	got := w.Execute(context.Background(), ragAngle)

	assert.Equal(t, "Top hit", got.Title)
	assert.Equal(t, content.TypeLink, got.Type)
	assert.Equal(t, []string{"https://top.example"}, got.Sources)
	assert.Equal(t, "best", got.Summary)
	require.Len(t, sp.calls, 1)
	assert.Equal(t, 3, sp.calls[0].maxResults)
	assert.Equal(t, search.RecencyAny, sp.calls[0].recency)
}

func TestAngleWorkerPlaceholder(t *testing.T) {
	p := &fakeLLM{respond: func(llm.Request) (string, error) { return "", errors.New("quota") }}
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		return nil, &search.QueryError{Backend: "fake", Query: q, Err: errors.New("blocked")}
	}}
	w := NewAngleWorker(synth.New(p, 0, logger.Nop()), sp, logger.Nop())

	got := w.Execute(context.Background(), ragAngle)

	assert.Equal(t, "Benchmarks: RAG vector database benchmarks", got.Title)
	assert.Equal(t, content.TypeArticle, got.Type)
	assert.Empty(t, got.Sources)
	assert.NotNil(t, got.Sources)
	assert.Equal(t, content.OutcomePlaceholder, got.Outcome)
}

func TestAngleWorkerWithoutCollaborators(t *testing.T) {
	w := NewAngleWorker(nil, nil, logger.Nop())
	got := w.Execute(context.Background(), ragAngle)
	assert.Equal(t, content.OutcomePlaceholder, got.Outcome)
}

func TestResearchThemePreservesAngleOrder(t *testing.T) {
	p := &fakeLLM{respond: func(req llm.Request) (string, error) {
		return "", errors.New("offline")
	}}
	sp := &fakeSearch{respond: func(q string, max int) ([]search.Result, error) {
		if strings.Contains(q, "case studies") {
			return nil, nil
		}
		return []search.Result{{Title: "hit for " + q, URL: "https://s.example/" + strings.ReplaceAll(q, " ", "-")}}, nil
	}}
	s := synth.New(p, 0, logger.Nop())

	proposals := ResearchTheme(context.Background(),
		NewAnglePlanner(s, 4, 0.7, logger.Nop()),
		NewAngleWorker(s, sp, logger.Nop()),
		"agents", nil)

	require.Len(t, proposals, 4)
	for i, a := range FallbackAngles("agents") {
		assert.Equal(t, a, proposals[i].Angle)
	}
	assert.Equal(t, "hit for agents overview guide", proposals[0].Title)
	assert.Equal(t, "Case Studies: agents case studies", proposals[2].Title)
	assert.Equal(t, content.OutcomePlaceholder, proposals[2].Outcome)
}
