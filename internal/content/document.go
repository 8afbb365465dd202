package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusResearched is the storage status every research run ends in.
const StatusResearched = "researched"

// Outcome records how a research run produced its document.
type Outcome string

const (
	OutcomeSynthesized     Outcome = "synthesized"
	OutcomeNoSources       Outcome = "no_sources"
	OutcomeSynthesisFailed Outcome = "synthesis_failed"
	OutcomePlaceholder     Outcome = "placeholder"
)

// Document is the synthesized post for one topic.
type Document struct {
	Day          int       `json:"day"`
	Title        string    `json:"title"`
	Hook         string    `json:"hook"`
	Sections     []Section `json:"sections"`
	KeyTakeaways []string  `json:"key_takeaways"`
	CallToAction string    `json:"call_to_action"`
	Hashtags     []string  `json:"hashtags"`
	Sources      []string  `json:"sources"`

	// Set by the pipeline, never by the model.
	Type       ContentType `json:"type,omitempty"`
	Summary    string      `json:"summary,omitempty"`
	Status     string      `json:"status,omitempty"`
	Outcome    Outcome     `json:"outcome,omitempty"`
	Violations []string    `json:"violations,omitempty"`
}

// Degraded reports whether the document was produced by a fallback path.
func (d *Document) Degraded() bool {
	return d.Outcome != "" && d.Outcome != OutcomeSynthesized
}

// Validate checks the fields the model must always fill.
func (d *Document) Validate() error {
	var problems []string
	if strings.TrimSpace(d.Title) == "" {
		problems = append(problems, "title is empty")
	}
	if strings.TrimSpace(d.Hook) == "" {
		problems = append(problems, "hook is empty")
	}
	if len(d.Sections) == 0 {
		problems = append(problems, "no sections")
	}
	for i, s := range d.Sections {
		if strings.TrimSpace(s.Header) == "" {
			problems = append(problems, fmt.Sprintf("section %d has no header", i+1))
		}
		if s.Body == nil {
			problems = append(problems, fmt.Sprintf("section %d has no body", i+1))
		}
	}
	if len(d.KeyTakeaways) == 0 {
		problems = append(problems, "no key takeaways")
	}
	if strings.TrimSpace(d.CallToAction) == "" {
		problems = append(problems, "call to action is empty")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// SectionBody is one of TextBody, ComparisonBody or TradeoffsBody.
type SectionBody interface {
	sectionBody()
}

// TextBody is free text with an optional concrete example.
type TextBody struct {
	Content string
	Example string
}

// ComparisonItem is one before/after row.
type ComparisonItem struct {
	Dimension string `json:"dimension"`
	Before    string `json:"before"`
	After     string `json:"after"`
}

// ComparisonBody is the structured "Before vs After" payload.
type ComparisonBody struct {
	Items   []ComparisonItem `json:"items"`
	Summary string           `json:"summary,omitempty"`
}

// TradeoffsBody is the structured "Trade-offs" payload.
type TradeoffsBody struct {
	Pros             []string `json:"pros"`
	Cons             []string `json:"cons"`
	Constraints      []string `json:"constraints"`
	RealWorldContext string   `json:"real_world_context,omitempty"`
}

func (c *ComparisonBody) empty() bool {
	return len(c.Items) == 0
}

func (t *TradeoffsBody) empty() bool {
	return len(t.Pros) == 0 && len(t.Cons) == 0 && len(t.Constraints) == 0 &&
		strings.TrimSpace(t.RealWorldContext) == ""
}

func (TextBody) sectionBody()       {}
func (ComparisonBody) sectionBody() {}
func (TradeoffsBody) sectionBody()  {}

// Section is a titled body part of a post.
type Section struct {
	Header string
	Body   SectionBody
}

// wireSection is the flat shape used by the model and by storage.
type wireSection struct {
	Header         string          `json:"header"`
	Content        *string         `json:"content,omitempty"`
	ExampleUseCase *string         `json:"example_use_case,omitempty"`
	Comparison     *ComparisonBody `json:"comparison,omitempty"`
	Tradeoffs      *TradeoffsBody  `json:"tradeoffs,omitempty"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s Section) MarshalJSON() ([]byte, error) {
	w := wireSection{Header: s.Header}
	switch b := s.Body.(type) {
	case TextBody:
		w.Content = &b.Content
		w.ExampleUseCase = strPtr(b.Example)
	case ComparisonBody:
		w.Comparison = &b
	case TradeoffsBody:
		w.Tradeoffs = &b
	case nil:
	default:
		return nil, fmt.Errorf("unknown section body %T", s.Body)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat wire shape. A structured payload wins over
// free text, so comparison and trade-off sections never carry both.
func (s *Section) UnmarshalJSON(data []byte) error {
	var w wireSection
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Header = strings.TrimSpace(w.Header)

	// Models in schema mode fill nullable objects with empty stubs.
	if w.Comparison != nil && w.Comparison.empty() {
		w.Comparison = nil
	}
	if w.Tradeoffs != nil && w.Tradeoffs.empty() {
		w.Tradeoffs = nil
	}

	switch {
	case w.Comparison != nil && w.Tradeoffs != nil:
		return fmt.Errorf("section %q has both comparison and tradeoffs", s.Header)
	case w.Comparison != nil:
		s.Body = *w.Comparison
	case w.Tradeoffs != nil:
		s.Body = *w.Tradeoffs
	case w.Content != nil && strings.TrimSpace(*w.Content) != "":
		body := TextBody{Content: strings.TrimSpace(*w.Content)}
		if w.ExampleUseCase != nil {
			body.Example = strings.TrimSpace(*w.ExampleUseCase)
		}
		s.Body = body
	default:
		return fmt.Errorf("section %q has no content", s.Header)
	}
	return nil
}
