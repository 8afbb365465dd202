// Package curriculum plans a month of daily topics for a theme.
package curriculum

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/TobiSchelling/PostGenerator/internal/content"
	"github.com/TobiSchelling/PostGenerator/internal/logger"
	"github.com/TobiSchelling/PostGenerator/internal/synth"
)

// Planner turns a theme into one DailyTopic per calendar day.
type Planner struct {
	synth       *synth.Synthesizer
	temperature float64
	log         *logger.Logger
}

// New creates a planner sampling at temperature.
func New(s *synth.Synthesizer, temperature float64, log *logger.Logger) *Planner {
	return &Planner{synth: s, temperature: temperature, log: log}
}

// Plan returns exactly DaysInMonth(month, year) topics, or nil when the
// model failed to produce a usable plan. Callers decide whether to retry.
func (p *Planner) Plan(ctx context.Context, themeTitle string, month, year int) []content.DailyTopic {
	if err := content.ValidateMonth(month, year); err != nil {
		p.log.Error("Invalid planning month", "theme", themeTitle, "error", err)
		return nil
	}

	numDays := content.DaysInMonth(month, year)
	p.log.Info("Planning curriculum", "theme", themeTitle, "month", month, "year", year, "days", numDays)

	prompt := synth.CurriculumPrompt(themeTitle, month, year, numDays)
	plan, err := synth.Run(ctx, p.synth, synth.TopicPlanSchema, synth.PlannerSystem, prompt,
		synth.Options{Temperature: p.temperature})
	if err != nil {
		p.log.Error("Curriculum planning failed", "theme", themeTitle, "error", err)
		return nil
	}

	topics, err := Normalize(plan.Topics, numDays)
	if err != nil {
		p.log.Error("Curriculum plan rejected", "theme", themeTitle, "error", err)
		return nil
	}

	if dups := RepeatedQueries(topics); len(dups) > 0 {
		p.log.Warn("Search queries repeat across days", "theme", themeTitle, "queries", dups)
	}

	p.log.Info("Planned topics", "theme", themeTitle, "count", len(topics))
	return topics
}

// Normalize orders topics by the model's day numbers, keeps the first
// numDays, renumbers them 1..numDays and sets difficulty by thirds. A plan
// with fewer than numDays topics is an error.
func Normalize(topics []content.DailyTopic, numDays int) ([]content.DailyTopic, error) {
	if len(topics) < numDays {
		return nil, fmt.Errorf("plan has %d topics, need %d", len(topics), numDays)
	}

	out := make([]content.DailyTopic, len(topics))
	copy(out, topics)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	out = out[:numDays]

	for i := range out {
		day := i + 1
		out[i].Day = day
		out[i].Difficulty = content.DifficultyForDay(day, numDays)
		if t, ok := content.ParseContentType(string(out[i].Type)); ok {
			out[i].Type = t
		} else {
			out[i].Type = content.TypeArticle
		}
		queries := make([]string, 0, len(out[i].SearchQueries))
		for _, q := range out[i].SearchQueries {
			if q = strings.TrimSpace(q); q != "" {
				queries = append(queries, q)
			}
		}
		out[i].SearchQueries = queries
	}
	return out, nil
}

// RepeatedQueries lists queries that appear on more than one day.
func RepeatedQueries(topics []content.DailyTopic) []string {
	firstDay := make(map[string]int)
	var repeated []string
	for _, t := range topics {
		for _, q := range t.SearchQueries {
			key := strings.ToLower(strings.TrimSpace(q))
			day, seen := firstDay[key]
			switch {
			case !seen:
				firstDay[key] = t.Day
			case day != t.Day && day > 0:
				repeated = append(repeated, q)
				firstDay[key] = -1
			}
		}
	}
	return repeated
}
