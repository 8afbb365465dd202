package database

import "github.com/TobiSchelling/PostGenerator/internal/content"

// PostStatus is the editorial state of a post.
type PostStatus string

const (
	StatusProposed   PostStatus = "proposed"
	StatusPlanned    PostStatus = "planned"
	StatusResearched PostStatus = content.StatusResearched
	StatusSelected   PostStatus = "selected"
	StatusInDraft    PostStatus = "inDraft"
	StatusScheduled  PostStatus = "scheduled"
)

// Post is a planned, proposed or researched post belonging to a theme.
type Post struct {
	ID                int64
	ThemeID           int64
	Title             string
	Type              content.ContentType
	Status            PostStatus
	Day               int
	LearningObjective string
	Difficulty        content.Difficulty
	SearchQueries     []string
	Sources           []string
	Summary           string
	Hook              string
	Sections          []content.Section
	KeyTakeaways      []string
	CallToAction      string
	Hashtags          []string
	Outcome           content.Outcome
	Violations        []string
	CreatedAt         *string
	UpdatedAt         *string
}

// Topic returns the curriculum topic the post was planned from.
func (p *Post) Topic() content.DailyTopic {
	return content.DailyTopic{
		Day:               p.Day,
		Title:             p.Title,
		LearningObjective: p.LearningObjective,
		Difficulty:        p.Difficulty,
		Type:              p.Type,
		SearchQueries:     p.SearchQueries,
	}
}

// Document returns the stored research result.
func (p *Post) Document() *content.Document {
	return &content.Document{
		Day:          p.Day,
		Title:        p.Title,
		Hook:         p.Hook,
		Sections:     p.Sections,
		KeyTakeaways: p.KeyTakeaways,
		CallToAction: p.CallToAction,
		Hashtags:     p.Hashtags,
		Sources:      p.Sources,
		Type:         p.Type,
		Summary:      p.Summary,
		Status:       string(p.Status),
		Outcome:      p.Outcome,
		Violations:   p.Violations,
	}
}

// ThemeUpdate holds the fields to change on a theme; nil fields are kept.
type ThemeUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Month       *int
	Year        *int
}

// Stats contains aggregate database statistics.
type Stats struct {
	Themes         int
	Posts          int
	Planned        int
	Proposed       int
	Researched     int
	Degraded       int
	WithViolations int
}
