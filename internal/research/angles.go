package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/PostGenerator/internal/cascade"
	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
	"github.com/TobiSchelling/PostGenerator/internal/search"
	"github.com/TobiSchelling/PostGenerator/internal/synth"
)

const (
	DefaultAngleCount = 4

	strategyGrounded    = "grounded_search"
	strategySearch      = "plain_search"
	strategyPlaceholder = "placeholder"

	plainSearchResults = 3
)

var errNoGroundedURL = errors.New("no valid URL returned")

// Proposal is one post proposed by the angle variant.
type Proposal struct {
	Angle   content.ResearchAngle
	Title   string
	Type    content.ContentType
	Sources []string
	Summary string
	Outcome content.Outcome
}

// FallbackAngles are used when angle planning fails.
func FallbackAngles(theme string) []content.ResearchAngle {
	return []content.ResearchAngle{
		{Angle: "General Overview", Query: theme + " overview guide"},
		{Angle: "Advanced Techniques", Query: "advanced " + theme + " techniques"},
		{Angle: "Case Studies", Query: theme + " case studies"},
		{Angle: "Future Trends", Query: "future of " + theme + " 2025"},
	}
}

// AnglePlanner asks the model for research angles on a theme.
type AnglePlanner struct {
	synth       *synth.Synthesizer
	count       int
	temperature float64
	log         *logger.Logger
}

// NewAnglePlanner creates an angle planner producing count angles.
func NewAnglePlanner(s *synth.Synthesizer, count int, temperature float64, log *logger.Logger) *AnglePlanner {
	if count <= 0 {
		count = DefaultAngleCount
	}
	return &AnglePlanner{synth: s, count: count, temperature: temperature, log: log}
}

// Plan returns up to count angles that avoid the existing titles. It falls
// back to the template angles when the model cannot deliver.
func (p *AnglePlanner) Plan(ctx context.Context, theme string, existingTitles []string) []content.ResearchAngle {
	plan, err := synth.Run(ctx, p.synth, synth.AnglePlanSchema, synth.AngleSystem,
		synth.AnglePrompt(theme, existingTitles, p.count), synth.Options{Temperature: p.temperature})
	if err != nil {
		p.log.Warn("Angle planning failed, using fallback angles", "theme", theme, "error", err)
		return FallbackAngles(theme)
	}

	angles := plan.Angles
	if len(angles) > p.count {
		angles = angles[:p.count]
	}
	for i := range angles {
		angles[i].Angle = strings.TrimSpace(angles[i].Angle)
		angles[i].Query = strings.TrimSpace(angles[i].Query)
	}
	return angles
}

// AngleWorker finds one source for an angle.
type AngleWorker struct {
	synth  *synth.Synthesizer
	search search.Provider
	log    *logger.Logger
}

// NewAngleWorker creates a worker. Either collaborator may be nil; its
// strategy then fails over to the next one.
func NewAngleWorker(s *synth.Synthesizer, sp search.Provider, log *logger.Logger) *AngleWorker {
	return &AngleWorker{synth: s, search: sp, log: log}
}

// Execute tries a search-grounded model call, then the top plain search
// result, then a placeholder. It always returns a proposal.
func (w *AngleWorker) Execute(ctx context.Context, angle content.ResearchAngle) Proposal {
	log := w.log.With("angle", angle.Angle, "query", angle.Query)

	p, strategy, err := cascade.Run(ctx, log,
		cascade.Strategy[Proposal]{Name: strategyGrounded, Attempt: w.grounded(angle)},
		cascade.Strategy[Proposal]{Name: strategySearch, Attempt: w.plainSearch(angle)},
		cascade.Strategy[Proposal]{Name: strategyPlaceholder, Attempt: placeholder(angle)},
	)
	if err != nil {
		// Unreachable while the placeholder strategy cannot fail.
		log.Error("All angle strategies failed", "error", err)
		p, _ = placeholder(angle)(ctx)
	}

	log.Info("Angle researched", "strategy", strategy, "title", p.Title)
	return p
}

func (w *AngleWorker) grounded(angle content.ResearchAngle) func(context.Context) (Proposal, error) {
	return func(ctx context.Context) (Proposal, error) {
		out, err := synth.Generate(ctx, w.synth, synth.FoundSourceSchema, synth.AngleSystem,
			synth.GroundedFindPrompt(angle.Query), synth.Options{Grounded: true})
		if err != nil {
			return Proposal{}, err
		}
		f := out.Value
		sources := f.Sources
		if len(sources) == 0 {
			sources = synth.WebURLs(out.Citations)
		}
		if len(sources) == 0 {
			return Proposal{}, errNoGroundedURL
		}
		return Proposal{
			Angle:   angle,
			Title:   f.Title,
			Type:    f.Type,
			Sources: sources,
			Summary: f.Summary,
			Outcome: content.OutcomeSynthesized,
		}, nil
	}
}

func (w *AngleWorker) plainSearch(angle content.ResearchAngle) func(context.Context) (Proposal, error) {
	return func(ctx context.Context) (Proposal, error) {
		if w.search == nil {
			return Proposal{}, search.ErrNotConfigured
		}
		results, err := w.search.Search(ctx, angle.Query, plainSearchResults, search.RecencyAny)
		if err != nil {
			return Proposal{}, err
		}
		if len(results) == 0 || results[0].URL == "" {
			return Proposal{}, cascade.ErrNoResult
		}
		top := results[0]
		return Proposal{
			Angle:   angle,
			Title:   top.Title,
			Type:    content.TypeLink,
			Sources: []string{top.URL},
			Summary: top.Snippet,
			Outcome: content.OutcomeSynthesized,
		}, nil
	}
}

func placeholder(angle content.ResearchAngle) func(context.Context) (Proposal, error) {
	return func(context.Context) (Proposal, error) {
		return Proposal{
			Angle:   angle,
			Title:   fmt.Sprintf("%s: %s", angle.Angle, angle.Query),
			Type:    content.TypeArticle,
			Sources: []string{},
			Outcome: content.OutcomePlaceholder,
		}, nil
	}
}

// ResearchTheme plans angles for a theme and runs one worker per angle in
// parallel. Proposals come back in angle order.
func ResearchTheme(ctx context.Context, planner *AnglePlanner, worker *AngleWorker, theme string, existingTitles []string) []Proposal {
	angles := planner.Plan(ctx, theme, existingTitles)
	proposals := make([]Proposal, len(angles))

	var g errgroup.Group
	for i, a := range angles {
		g.Go(func() error {
			proposals[i] = worker.Execute(ctx, a)
			return nil
		})
	}
	_ = g.Wait()
	return proposals
}
