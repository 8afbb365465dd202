// Package pipeline wires planning and research to storage. Each exported
// method is one use case of the CLI and the HTTP API.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/TobiSchelling/PostGenerator/internal/config"
	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/curriculum"
	"github.com/TobiSchelling/PostGenerator/internal/database"
	"github.com/TobiSchelling/PostGenerator/internal/fetch"
	"github.com/TobiSchelling/PostGenerator/internal/llm"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
	"github.com/TobiSchelling/PostGenerator/internal/research"
	"github.com/TobiSchelling/PostGenerator/internal/search"
	"github.com/TobiSchelling/PostGenerator/internal/synth"
)

var (
	ErrThemeNotFound = errors.New("theme not found")
	ErrPostNotFound  = errors.New("post not found")
	// ErrNoQueries rejects research on a post that was never planned.
	ErrNoQueries = errors.New("post does not have search queries, (re)plan the theme first")
	// ErrEmptyPlan means the planner could not produce a curriculum.
	ErrEmptyPlan = errors.New("curriculum planning produced no topics")
)

// Components are the collaborators a Pipeline drives.
type Components struct {
	Planner      *curriculum.Planner
	Orchestrator *research.Orchestrator
	AnglePlanner *research.AnglePlanner
	AngleWorker  *research.AngleWorker
}

// Build constructs the components from configuration.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (Components, error) {
	provider, err := llm.CreateProvider(ctx, cfg.LLM, log)
	if err != nil {
		return Components{}, err
	}

	searcher, err := search.New(cfg.Search, log)
	if err != nil {
		return Components{}, fmt.Errorf("configuring search: %w", err)
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:     cfg.Fetch.Timeout,
		UserAgent:   cfg.Fetch.UserAgent,
		MaxChars:    cfg.Fetch.MaxChars,
		Concurrency: cfg.Fetch.Concurrency,
	}, log)

	s := synth.New(provider, cfg.LLM.MaxTokens, log)

	return Components{
		Planner: curriculum.New(s, cfg.LLM.PlanningTemperature, log),
		Orchestrator: research.New(searcher, fetcher, s, research.Options{
			MaxCandidates: cfg.Research.MaxCandidates,
			Recency:       search.RecencyYear,
			Temperature:   cfg.LLM.SynthesisTemperature,
		}, log),
		AnglePlanner: research.NewAnglePlanner(s, cfg.Research.AngleCount, cfg.LLM.PlanningTemperature, log),
		AngleWorker:  research.NewAngleWorker(s, searcher, log),
	}, nil
}

// PostResult is the outcome of researching one stored post.
type PostResult struct {
	PostID   int64
	Day      int
	Title    string
	Document *content.Document
	Err      error
}

// Pipeline runs use cases against the database.
type Pipeline struct {
	db          *database.DB
	c           Components
	concurrency int
	log         *logger.Logger
}

// New creates a new pipeline. concurrency bounds batch research.
func New(db *database.DB, c Components, concurrency int, log *logger.Logger) *Pipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{db: db, c: c, concurrency: concurrency, log: log}
}

// PlanTheme plans the theme's month and stores the topics as planned posts,
// replacing any earlier plan.
func (p *Pipeline) PlanTheme(ctx context.Context, themeID int64) ([]database.Post, error) {
	theme, err := p.theme(themeID)
	if err != nil {
		return nil, err
	}

	topics := p.c.Planner.Plan(ctx, theme.Title, theme.Month, theme.Year)
	if len(topics) == 0 {
		return nil, ErrEmptyPlan
	}

	if _, err := p.db.SavePlannedTopics(theme.ID, topics); err != nil {
		return nil, fmt.Errorf("saving plan: %w", err)
	}
	p.log.Info("Theme planned", "theme", theme.Title, "topics", len(topics))

	return p.db.GetPostsByStatus(theme.ID, database.StatusPlanned)
}

// ResearchPost researches one stored post and saves the document. Degraded
// documents are saved too; only storage errors are returned.
func (p *Pipeline) ResearchPost(ctx context.Context, postID int64) (*database.Post, error) {
	post, err := p.db.GetPost(postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if len(post.SearchQueries) == 0 {
		return nil, ErrNoQueries
	}

	doc := p.c.Orchestrator.ResearchTopic(ctx, post.Topic())
	if err := p.db.ApplyResearch(post.ID, doc); err != nil {
		return nil, fmt.Errorf("saving research: %w", err)
	}
	return p.db.GetPost(post.ID)
}

// ResearchPlanned researches every planned post of a theme with bounded
// concurrency. Results follow day order.
func (p *Pipeline) ResearchPlanned(ctx context.Context, themeID int64) ([]PostResult, error) {
	if _, err := p.theme(themeID); err != nil {
		return nil, err
	}

	posts, err := p.db.GetPostsByStatus(themeID, database.StatusPlanned)
	if err != nil {
		return nil, err
	}

	results := make([]PostResult, len(posts))
	var runnable []int
	for i, post := range posts {
		results[i] = PostResult{PostID: post.ID, Day: post.Day, Title: post.Title}
		if len(post.SearchQueries) == 0 {
			results[i].Err = ErrNoQueries
			continue
		}
		runnable = append(runnable, i)
	}

	topics := make([]content.DailyTopic, len(runnable))
	for j, i := range runnable {
		topics[j] = posts[i].Topic()
	}
	docs := p.c.Orchestrator.ResearchAll(ctx, topics, p.concurrency)

	for j, i := range runnable {
		results[i].Document = docs[j]
		if err := p.db.ApplyResearch(posts[i].ID, docs[j]); err != nil {
			results[i].Err = fmt.Errorf("saving research: %w", err)
		}
	}

	p.log.Info("Theme researched", "theme_id", themeID, "posts", len(results))
	return results, nil
}

// ProposeAngles runs the angle variant for a theme and stores each finding
// as a proposed post.
func (p *Pipeline) ProposeAngles(ctx context.Context, themeID int64) ([]database.Post, error) {
	theme, err := p.theme(themeID)
	if err != nil {
		return nil, err
	}

	existing, err := p.db.GetPostTitles(theme.ID)
	if err != nil {
		return nil, err
	}

	proposals := research.ResearchTheme(ctx, p.c.AnglePlanner, p.c.AngleWorker, theme.Title, existing)

	saved := make([]database.Post, 0, len(proposals))
	for _, pr := range proposals {
		post := database.Post{
			ThemeID: theme.ID,
			Title:   pr.Title,
			Type:    pr.Type,
			Status:  database.StatusProposed,
			Sources: pr.Sources,
			Summary: pr.Summary,
			Outcome: pr.Outcome,
		}
		id, err := p.db.InsertPost(&post)
		if err != nil {
			return saved, fmt.Errorf("saving proposal %q: %w", pr.Title, err)
		}
		post.ID = id
		saved = append(saved, post)
	}

	p.log.Info("Angles proposed", "theme", theme.Title, "count", len(saved))
	return saved, nil
}

func (p *Pipeline) theme(themeID int64) (*content.Theme, error) {
	theme, err := p.db.GetTheme(themeID)
	if err != nil {
		return nil, err
	}
	if theme == nil {
		return nil, ErrThemeNotFound
	}
	return theme, nil
}
