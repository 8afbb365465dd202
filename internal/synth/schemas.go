package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/TobiSchelling/PostGenerator/internal/content"
)

// TopicPlan is the curriculum planner's output.
type TopicPlan struct {
	Topics []content.DailyTopic `json:"topics"`
}

// AnglePlan is the angle planner's output.
type AnglePlan struct {
	Angles []content.ResearchAngle `json:"angles" jsonschema:"distinct research angles, each with a search query"`
}

// FoundSource is what a search-grounded call reports for one angle.
type FoundSource struct {
	Title   string              `json:"title" jsonschema:"a compelling title for a post about this resource"`
	Type    content.ContentType `json:"type" jsonschema:"one of link, article, forum"`
	Sources []string            `json:"sources" jsonschema:"the specific URLs found"`
	Summary string              `json:"summary,omitempty" jsonschema:"one-sentence summary of what the source covers"`
}

var (
	TopicPlanSchema   = NewDescriptor("topic_plan", topicPlanSchema(), checkTopicPlan)
	AnglePlanSchema   = NewDescriptor("angle_plan", mustInfer[AnglePlan](), checkAnglePlan)
	FoundSourceSchema = NewDescriptor("found_source", mustInfer[FoundSource](), checkFoundSource)
	DocumentSchema    = NewDescriptor("content_document", documentSchema(), checkDocument)
)

// mustInfer derives a schema from T. Models add stray keys, so inferred
// objects accept unknown properties.
func mustInfer[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("synth: inferring schema: %v", err))
	}
	allowExtra(s)
	return s
}

func allowExtra(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	s.AdditionalProperties = nil
	allowExtra(s.Items)
	for _, p := range s.Properties {
		allowExtra(p)
	}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func optStr(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"string", "null"}, Description: description}
}

func strList(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: description}
}

func intp(n int) *int { return &n }

func topicPlanSchema() *jsonschema.Schema {
	topic := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"day":                {Type: "integer", Description: "the day of the month (1-31)", Minimum: new(float64)},
			"title":              str("a compelling title for the post"),
			"learning_objective": str("what the reader will learn"),
			"difficulty": {
				Type: "string",
				Enum: []any{string(content.Beginner), string(content.Intermediate), string(content.Advanced)},
			},
			"type": {
				Type: "string",
				Enum: []any{string(content.TypeLink), string(content.TypeArticle), string(content.TypeForum)},
			},
			"search_queries": {
				Type:        "array",
				Items:       &jsonschema.Schema{Type: "string"},
				MinItems:    intp(3),
				MaxItems:    intp(5),
				Description: "3-5 specific search queries for deep research",
			},
		},
		Required: []string{"day", "title", "learning_objective", "difficulty", "type", "search_queries"},
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"topics": {Type: "array", Items: topic, Description: "daily topics for the entire month"},
		},
		Required: []string{"topics"},
	}
}

func documentSchema() *jsonschema.Schema {
	comparison := &jsonschema.Schema{
		Types: []string{"object", "null"},
		Properties: map[string]*jsonschema.Schema{
			"items": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"dimension": str("the aspect being compared, e.g. Performance"),
						"before":    str("state before the solution"),
						"after":     str("state after the solution"),
					},
					Required: []string{"dimension", "before", "after"},
				},
			},
			"summary": optStr("a concluding summary of the comparison"),
		},
		Required: []string{"items"},
	}
	tradeoffs := &jsonschema.Schema{
		Types: []string{"object", "null"},
		Properties: map[string]*jsonschema.Schema{
			"pros":               strList("3+ benefits"),
			"cons":               strList("3+ challenges or limitations"),
			"constraints":        strList("2+ scenarios where this should NOT be used"),
			"real_world_context": optStr("a real-world example of issues or failures"),
		},
		Required: []string{"pros", "cons", "constraints"},
	}
	section := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"header":           str("the section header (plain text, no emojis)"),
			"content":          optStr("the main content of the section (plain text, no emojis)"),
			"example_use_case": optStr("one concrete real-world example (plain text, no emojis)"),
			"comparison":       comparison,
			"tradeoffs":        tradeoffs,
		},
		Required: []string{"header"},
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"day":            {Type: "integer", Description: "the day of the curriculum"},
			"title":          str("a compelling title for the post (plain text, no emojis)"),
			"hook":           str("an engaging opening hook (plain text, no emojis)"),
			"sections":       {Type: "array", Items: section, MinItems: intp(1)},
			"key_takeaways":  strList("exactly 3 key takeaways (plain text, no emojis)"),
			"call_to_action": str("a personal question to encourage engagement"),
			"hashtags":       strList("relevant hashtags without the # symbol"),
			"sources":        strList("the most relevant source URLs used"),
		},
		Required: []string{"day", "title", "hook", "sections", "key_takeaways", "call_to_action", "hashtags", "sources"},
	}
}

func checkTopicPlan(p *TopicPlan) error {
	if len(p.Topics) == 0 {
		return errors.New("no topics")
	}
	for i, t := range p.Topics {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("topic %d has no title", i+1)
		}
		for _, q := range t.SearchQueries {
			if strings.TrimSpace(q) == "" {
				return fmt.Errorf("topic %d has an empty search query", i+1)
			}
		}
	}
	return nil
}

func checkAnglePlan(p *AnglePlan) error {
	if len(p.Angles) == 0 {
		return errors.New("no angles")
	}
	for i, a := range p.Angles {
		if strings.TrimSpace(a.Angle) == "" || strings.TrimSpace(a.Query) == "" {
			return fmt.Errorf("angle %d is incomplete", i+1)
		}
	}
	return nil
}

// checkFoundSource keeps only absolute http(s) sources and normalizes the
// type. A grounded answer may name no URL in its JSON; the caller can then
// fall back to the grounding citations.
func checkFoundSource(f *FoundSource) error {
	f.Sources = WebURLs(f.Sources)
	if strings.TrimSpace(f.Title) == "" {
		return errors.New("no title returned")
	}
	if t, ok := content.ParseContentType(string(f.Type)); ok {
		f.Type = t
	} else {
		f.Type = content.TypeLink
	}
	return nil
}

func checkDocument(d *content.Document) error {
	return d.Validate()
}

// WebURLs returns the trimmed entries of urls that start with http.
func WebURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if strings.HasPrefix(u, "http") {
			out = append(out, u)
		}
	}
	return out
}
