// Package content holds the domain types shared by the planner, the research
// pipeline and the storage layer.
package content

import (
	"fmt"
	"strings"
	"time"
)

// Theme is a monthly content theme. (Month, Year) identifies it.
type Theme struct {
	ID          int64
	Title       string
	Description string
	Month       int
	Year        int
	Category    string
}

// Difficulty is the learning level of a daily topic.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// ParseDifficulty maps free text to a Difficulty. Unknown values are
// reported as not ok.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return Beginner, true
	case "intermediate":
		return Intermediate, true
	case "advanced":
		return Advanced, true
	}
	return "", false
}

// MaxSearchResults is the total search budget for a topic of this difficulty.
func (d Difficulty) MaxSearchResults() int {
	switch d {
	case Intermediate:
		return 35
	case Advanced:
		return 45
	default:
		return 20
	}
}

// ContentType is the kind of post a topic produces.
type ContentType string

const (
	TypeLink    ContentType = "link"
	TypeArticle ContentType = "article"
	TypeForum   ContentType = "forum"
)

// ParseContentType maps free text to a ContentType.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeLink:
		return TypeLink, true
	case TypeArticle:
		return TypeArticle, true
	case TypeForum:
		return TypeForum, true
	}
	return "", false
}

// DailyTopic is one day of a monthly curriculum.
type DailyTopic struct {
	Day               int         `json:"day"`
	Title             string      `json:"title"`
	LearningObjective string      `json:"learning_objective"`
	Difficulty        Difficulty  `json:"difficulty"`
	Type              ContentType `json:"type"`
	SearchQueries     []string    `json:"search_queries"`
}

// ResearchAngle is the lighter-weight topic unit used by the angle-based
// research variant.
type ResearchAngle struct {
	Angle string `json:"angle"`
	Query string `json:"query"`
}

// DaysInMonth returns the number of calendar days in month/year.
func DaysInMonth(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DifficultyForDay returns the band for day out of n: the first ceil(n/3)
// days are Beginner, days up to ceil(2n/3) Intermediate, the rest Advanced.
func DifficultyForDay(day, n int) Difficulty {
	if n <= 0 {
		return Beginner
	}
	first := (n + 2) / 3
	second := (2*n + 2) / 3
	switch {
	case day <= first:
		return Beginner
	case day <= second:
		return Intermediate
	default:
		return Advanced
	}
}

// ValidateMonth checks month/year input from callers.
func ValidateMonth(month, year int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year < 2000 {
		return fmt.Errorf("year must be 2000 or later, got %d", year)
	}
	return nil
}
