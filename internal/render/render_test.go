package render

import (
	"strings"
	"testing"

	"github.com/TobiSchelling/PostGenerator/internal/content"
)

func sampleDocument() *content.Document {
	return &content.Document{
		Day:   3,
		Title: "Attention, Plainly",
		Hook:  "You read 200 words a minute. Models read 100000 tokens at once.",
		Sections: []content.Section{
			{Header: "The Problem", Body: content.TextBody{Content: "RNNs forget.", Example: "Translate in 2016."}},
			{Header: "Before vs After", Body: content.ComparisonBody{
				Items:   []content.ComparisonItem{{Dimension: "Context", Before: "512", After: "128k | more"}},
				Summary: "Longer context.",
			}},
			{Header: "Trade-offs", Body: content.TradeoffsBody{
				Pros: []string{"parallel"}, Cons: []string{"quadratic memory"}, Constraints: []string{"tiny devices"},
				RealWorldContext: "Early chatbots hit memory walls.",
			}},
		},
		KeyTakeaways: []string{"one", "two", "three"},
		CallToAction: "What would you feed it?",
		Hashtags:     []string{"AI", "#MachineLearning", "Deep Learning"},
		Sources:      []string{"https://a.example"},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleDocument())

	for _, want := range []string{
		"# Attention, Plainly\n\nYou read 200 words a minute.",
		"## The Problem\n\nRNNs forget.\n\n> **Example:** Translate in 2016.",
		"| Dimension | Before | After |\n|---|---|---|\n| Context | 512 | 128k \\| more |",
		"Longer context.",
		"**Pros**\n\n- parallel",
		"**Don't use it when**\n\n- tiny devices",
		"> Early chatbots hit memory walls.",
		"## Key Takeaways\n\n- one\n- two\n- three",
		"What would you feed it?",
		"#AI #MachineLearning #DeepLearning",
		"**Sources:**\n- <https://a.example>",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}
}

func TestMarkdownDegraded(t *testing.T) {
	doc := &content.Document{
		Title:   "Attention Basics",
		Summary: "Deep research failed to find or scrape relevant sources.",
		Sources: []string{},
	}
	md := Markdown(doc)

	if !strings.HasPrefix(md, "# Attention Basics\n\n_Deep research failed") {
		t.Errorf("unexpected degraded markdown:\n%s", md)
	}
	if strings.Contains(md, "Key Takeaways") || strings.Contains(md, "Sources") {
		t.Errorf("expected empty parts to be omitted:\n%s", md)
	}
}

func TestThemeMarkdown(t *testing.T) {
	theme := content.Theme{Title: "Transformers", Description: "A month of attention.", Month: 2, Year: 2026}
	md := ThemeMarkdown(theme, []Entry{
		{Day: 1, Document: &content.Document{Title: "First"}},
		{Day: 2, Document: &content.Document{Title: "Second"}},
	})

	if !strings.HasPrefix(md, "# Transformers (02/2026)\n\nA month of attention.") {
		t.Errorf("unexpected header:\n%s", md)
	}
	if strings.Count(md, "\n---\n") != 2 {
		t.Errorf("expected 2 separators:\n%s", md)
	}
	if !strings.Contains(md, "<!-- day 2 -->\n# Second") {
		t.Errorf("expected day marker:\n%s", md)
	}
}
