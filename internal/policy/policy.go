// Package policy checks a synthesized post against the editorial rules the
// synthesis prompt imposes. Findings are quality markers, not failures.
package policy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/TobiSchelling/PostGenerator/internal/content"
)

const (
	maxHookSentences  = 3
	minHookNumbers    = 2
	maxSentenceWords  = 25
	requiredTakeaways = 3
)

var (
	sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)
	number      = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	currency    = regexp.MustCompile(`[$€£]\s?\d[\d,.]*(?:\s?(?:[kKmMbB]n?|million|billion|thousand)\b)?`)
	percentage  = regexp.MustCompile(`\d+(?:[.,]\d+)?\s?(?:%|percent\b)`)
)

var marketingWords = []string{
	"revolutionary", "game-changing", "game changer", "groundbreaking", "unprecedented",
	"cutting-edge", "best-in-class", "world-class", "mind-blowing", "disruptive", "ultimate",
}

var actionVerbs = map[string]bool{
	"start": true, "use": true, "try": true, "adopt": true, "measure": true, "evaluate": true,
	"replace": true, "add": true, "benchmark": true, "build": true, "avoid": true, "test": true,
}

// Check returns every rule the document breaks. researched is the context
// block the document was synthesized from; figures not found in it are
// reported as unsupported.
func Check(doc *content.Document, researched string) []string {
	var v []string
	v = append(v, checkHook(doc.Hook)...)
	v = append(v, checkSections(doc.Sections)...)
	v = append(v, checkTakeaways(doc.KeyTakeaways)...)
	v = append(v, checkCallToAction(doc.CallToAction)...)
	v = append(v, checkFigures(doc, researched)...)
	return v
}

// Sentences splits text on terminal punctuation.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentenceEnd.Split(strings.TrimSpace(text), -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func checkHook(hook string) []string {
	var v []string
	sentences := Sentences(hook)
	if len(sentences) > maxHookSentences {
		v = append(v, fmt.Sprintf("hook has %d sentences, max %d", len(sentences), maxHookSentences))
	}
	if strings.Contains(hook, ";") {
		v = append(v, "hook contains a semicolon")
	}
	if n := len(number.FindAllString(hook, -1)); n < minHookNumbers {
		v = append(v, fmt.Sprintf("hook has %d numeric facts, need %d", n, minHookNumbers))
	}
	for i, s := range sentences {
		if words := len(strings.Fields(s)); words > maxSentenceWords {
			v = append(v, fmt.Sprintf("hook sentence %d has %d words, max %d", i+1, words, maxSentenceWords))
		}
	}
	lower := strings.ToLower(hook)
	for _, w := range marketingWords {
		if strings.Contains(lower, w) {
			v = append(v, fmt.Sprintf("hook uses marketing language %q", w))
		}
	}
	return v
}

type sectionKind int

const (
	kindText sectionKind = iota
	kindComparison
	kindTradeoffs
)

func expectedKind(header string) sectionKind {
	h := strings.ToLower(header)
	switch {
	case strings.Contains(h, "before") && strings.Contains(h, "after"):
		return kindComparison
	case strings.Contains(h, "trade-off") || strings.Contains(h, "tradeoff") || strings.Contains(h, "trade off"):
		return kindTradeoffs
	}
	return kindText
}

func checkSections(sections []content.Section) []string {
	var v []string
	var hasComparison, hasTradeoffs bool

	for _, s := range sections {
		want := expectedKind(s.Header)
		switch b := s.Body.(type) {
		case content.TextBody:
			if want != kindText {
				v = append(v, fmt.Sprintf("section %q must be structured, not free text", s.Header))
			} else if strings.TrimSpace(b.Example) == "" {
				v = append(v, fmt.Sprintf("section %q has no example", s.Header))
			}
		case content.ComparisonBody:
			hasComparison = true
			if want == kindTradeoffs {
				v = append(v, fmt.Sprintf("section %q carries a comparison instead of trade-offs", s.Header))
			}
		case content.TradeoffsBody:
			hasTradeoffs = true
			if want == kindComparison {
				v = append(v, fmt.Sprintf("section %q carries trade-offs instead of a comparison", s.Header))
			}
		}
	}

	if !hasComparison {
		v = append(v, "missing structured before/after comparison")
	}
	if !hasTradeoffs {
		v = append(v, "missing structured trade-offs")
	}
	return v
}

func checkTakeaways(takeaways []string) []string {
	var v []string
	if len(takeaways) != requiredTakeaways {
		v = append(v, fmt.Sprintf("%d key takeaways, need exactly %d", len(takeaways), requiredTakeaways))
	}
	for i, t := range takeaways {
		if !isConcrete(t) {
			v = append(v, fmt.Sprintf("takeaway %d names no product and gives no action", i+1))
		}
	}
	return v
}

// isConcrete accepts a takeaway that starts with an action verb or names
// something: a capitalized word after the first.
func isConcrete(takeaway string) bool {
	words := strings.Fields(takeaway)
	if len(words) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimFunc(words[0], func(r rune) bool { return !unicode.IsLetter(r) }))
	if actionVerbs[first] {
		return true
	}
	for _, w := range words[1:] {
		r := []rune(strings.TrimLeftFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }))
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			return true
		}
	}
	return false
}

func checkCallToAction(cta string) []string {
	cta = strings.TrimSpace(cta)
	if cta == "" {
		return []string{"call to action is empty"}
	}
	var v []string
	if !strings.HasSuffix(cta, "?") {
		v = append(v, "call to action is not a question")
	}
	lower := " " + strings.ToLower(cta) + " "
	if !strings.Contains(lower, " you") && !strings.Contains(lower, " your") {
		v = append(v, "call to action is not personal")
	}
	return v
}

// checkFigures reports currency amounts and percentages that do not occur
// in the researched text.
func checkFigures(doc *content.Document, researched string) []string {
	haystack := squash(researched)
	seen := make(map[string]bool)
	var v []string
	for _, text := range documentText(doc) {
		for _, re := range []*regexp.Regexp{currency, percentage} {
			for _, fig := range re.FindAllString(text, -1) {
				fig = strings.TrimRight(fig, ".,")
				key := squash(fig)
				if seen[key] {
					continue
				}
				seen[key] = true
				if !strings.Contains(haystack, key) {
					v = append(v, fmt.Sprintf("unsupported figure %q", strings.TrimSpace(fig)))
				}
			}
		}
	}
	return v
}

func squash(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func documentText(doc *content.Document) []string {
	texts := []string{doc.Hook, doc.CallToAction}
	texts = append(texts, doc.KeyTakeaways...)
	for _, s := range doc.Sections {
		switch b := s.Body.(type) {
		case content.TextBody:
			texts = append(texts, b.Content, b.Example)
		case content.ComparisonBody:
			texts = append(texts, b.Summary)
			for _, item := range b.Items {
				texts = append(texts, item.Before, item.After)
			}
		case content.TradeoffsBody:
			texts = append(texts, b.RealWorldContext)
			texts = append(texts, b.Pros...)
			texts = append(texts, b.Cons...)
			texts = append(texts, b.Constraints...)
		}
	}
	return texts
}
