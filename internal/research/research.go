// Package research turns one topic into a synthesized post:
// search, deduplicate, fetch, synthesize. Every stage degrades instead of
// failing, so callers always receive a well-formed document.
package research

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/fetch"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
	"github.com/TobiSchelling/PostGenerator/internal/policy"
	"github.com/TobiSchelling/PostGenerator/internal/search"
	"github.com/TobiSchelling/PostGenerator/internal/synth"
)

const (
	DefaultMaxCandidates = 10

	NoEvidenceSummary   = "Deep research failed to find or scrape relevant sources."
	SynthesisFailedHook = "Error during synthesis."

	contextSeparator = "\n\n---\n\n"
)

// ErrNoEvidence marks a run that found nothing to synthesize from.
var ErrNoEvidence = errors.New("no source could be fetched")

// PageFetcher fetches many URLs and returns the pages that succeeded, in
// input order.
type PageFetcher interface {
	FetchAll(ctx context.Context, urls []string) []fetch.Page
}

// Options configure an Orchestrator.
type Options struct {
	MaxCandidates int
	Recency       search.Recency
	Temperature   float64
}

// Orchestrator runs the research pipeline for single topics.
type Orchestrator struct {
	search  search.Provider
	fetcher PageFetcher
	synth   *synth.Synthesizer
	opts    Options
	log     *logger.Logger
}

// New creates an orchestrator.
func New(sp search.Provider, f PageFetcher, s *synth.Synthesizer, opts Options, log *logger.Logger) *Orchestrator {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	return &Orchestrator{search: sp, fetcher: f, synth: s, opts: opts, log: log}
}

// ResearchTopic never returns nil. Degraded runs are tagged on
// Document.Outcome while Status stays "researched".
func (o *Orchestrator) ResearchTopic(ctx context.Context, topic content.DailyTopic) *content.Document {
	log := o.log.With("run_id", uuid.NewString(), "day", topic.Day, "topic", topic.Title)
	log.Info("Deep researching topic", "difficulty", topic.Difficulty, "queries", len(topic.SearchQueries))

	candidates := o.Candidates(ctx, topic, log)
	log.Info("Found candidate URLs", "count", len(candidates))

	var pages []fetch.Page
	if len(candidates) > 0 {
		pages = o.fetcher.FetchAll(ctx, candidates)
	}
	log.Info("Fetched pages", "count", len(pages))

	if len(pages) == 0 {
		log.Warn("No content fetched, skipping synthesis", "error", ErrNoEvidence)
		return noEvidenceDocument(topic, candidates)
	}

	researched := FormatContext(pages)
	doc, err := synth.Run(ctx, o.synth, synth.DocumentSchema, synth.ResearchSystem,
		synth.ResearchPrompt(topic, researched), synth.Options{Temperature: o.opts.Temperature})
	if err != nil {
		log.Error("Synthesis failed", "error", err)
		return synthesisFailedDocument(topic, candidates)
	}

	doc.Day = topic.Day
	doc.Type = topic.Type
	doc.Status = content.StatusResearched
	doc.Outcome = content.OutcomeSynthesized
	if len(doc.Sources) == 0 {
		for _, p := range pages {
			doc.Sources = append(doc.Sources, p.URL)
		}
	}
	doc.Violations = policy.Check(doc, researched)
	if len(doc.Violations) > 0 {
		log.Warn("Document breaks content rules", "violations", len(doc.Violations))
	}

	log.Info("Synthesis complete", "sections", len(doc.Sections))
	return doc
}

// Candidates runs the topic's queries in order and returns the
// deduplicated candidate URLs. A failed query contributes nothing.
func (o *Orchestrator) Candidates(ctx context.Context, topic content.DailyTopic, log *logger.Logger) []string {
	if len(topic.SearchQueries) == 0 {
		return nil
	}

	perQuery := PerQueryResults(topic.Difficulty, len(topic.SearchQueries))
	var urls []string
	for _, q := range topic.SearchQueries {
		results, err := o.search.Search(ctx, q, perQuery, o.opts.Recency)
		if err != nil {
			log.Warn("Search error for query", "query", q, "error", err)
			continue
		}
		for _, r := range results {
			urls = append(urls, r.URL)
		}
	}
	return Dedup(urls, o.opts.MaxCandidates)
}

// ResearchAll researches topics concurrently, at most concurrency at a
// time, and returns the documents in topic order.
func (o *Orchestrator) ResearchAll(ctx context.Context, topics []content.DailyTopic, concurrency int) []*content.Document {
	docs := make([]*content.Document, len(topics))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, t := range topics {
		g.Go(func() error {
			docs[i] = o.ResearchTopic(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return docs
}

// PerQueryResults splits the difficulty's search budget evenly across
// queries, at least one result each.
func PerQueryResults(d content.Difficulty, queries int) int {
	if queries <= 0 {
		return 0
	}
	n := d.MaxSearchResults() / queries
	if n < 1 {
		n = 1
	}
	return n
}

// Dedup keeps the first occurrence of each URL, in order, up to limit.
// Applying it twice yields the same result.
func Dedup(urls []string, limit int) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, min(len(urls), max(limit, 0)))
	for _, u := range urls {
		if limit > 0 && len(out) >= limit {
			break
		}
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// FormatContext joins fetched pages into the synthesis context block.
func FormatContext(pages []fetch.Page) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = "Source: " + p.URL + "\nContent: " + p.Text
	}
	return strings.Join(parts, contextSeparator)
}

func noEvidenceDocument(topic content.DailyTopic, candidates []string) *content.Document {
	return &content.Document{
		Day:          topic.Day,
		Title:        topic.Title,
		Sections:     []content.Section{},
		KeyTakeaways: []string{},
		Hashtags:     []string{},
		Sources:      nonNil(candidates),
		Type:         topic.Type,
		Summary:      NoEvidenceSummary,
		Status:       content.StatusResearched,
		Outcome:      content.OutcomeNoSources,
	}
}

func synthesisFailedDocument(topic content.DailyTopic, candidates []string) *content.Document {
	return &content.Document{
		Day:          topic.Day,
		Title:        topic.Title,
		Hook:         SynthesisFailedHook,
		Sections:     []content.Section{},
		KeyTakeaways: []string{},
		Hashtags:     []string{},
		Sources:      nonNil(candidates),
		Type:         topic.Type,
		Status:       content.StatusResearched,
		Outcome:      content.OutcomeSynthesisFailed,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
