// Package render turns research documents into LinkedIn-ready Markdown.
package render

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/PostGenerator/internal/content"
)

// Markdown renders a document: hook, sections, takeaways, call to action,
// hashtags and sources. Degraded documents render whatever they carry.
func Markdown(doc *content.Document) string {
	var parts []string

	parts = append(parts, "# "+doc.Title)
	if doc.Hook != "" {
		parts = append(parts, doc.Hook)
	}
	if doc.Summary != "" {
		parts = append(parts, "_"+doc.Summary+"_")
	}

	for _, s := range doc.Sections {
		parts = append(parts, section(s))
	}

	if len(doc.KeyTakeaways) > 0 {
		parts = append(parts, "## Key Takeaways\n\n"+bullets(doc.KeyTakeaways))
	}
	if doc.CallToAction != "" {
		parts = append(parts, doc.CallToAction)
	}
	if len(doc.Hashtags) > 0 {
		tags := make([]string, len(doc.Hashtags))
		for i, h := range doc.Hashtags {
			tags[i] = "#" + strings.TrimPrefix(strings.ReplaceAll(h, " ", ""), "#")
		}
		parts = append(parts, strings.Join(tags, " "))
	}
	if len(doc.Sources) > 0 {
		var refs []string
		for _, u := range doc.Sources {
			refs = append(refs, fmt.Sprintf("- <%s>", u))
		}
		parts = append(parts, "**Sources:**\n"+strings.Join(refs, "\n"))
	}

	return strings.Join(parts, "\n\n") + "\n"
}

func section(s content.Section) string {
	header := "## " + s.Header
	switch b := s.Body.(type) {
	case content.TextBody:
		out := header + "\n\n" + b.Content
		if b.Example != "" {
			out += "\n\n> **Example:** " + b.Example
		}
		return out
	case content.ComparisonBody:
		rows := []string{"| Dimension | Before | After |", "|---|---|---|"}
		for _, it := range b.Items {
			rows = append(rows, fmt.Sprintf("| %s | %s | %s |", cell(it.Dimension), cell(it.Before), cell(it.After)))
		}
		out := header + "\n\n" + strings.Join(rows, "\n")
		if b.Summary != "" {
			out += "\n\n" + b.Summary
		}
		return out
	case content.TradeoffsBody:
		out := header
		for _, group := range []struct {
			label string
			items []string
		}{
			{"Pros", b.Pros},
			{"Cons", b.Cons},
			{"Don't use it when", b.Constraints},
		} {
			if len(group.items) > 0 {
				out += "\n\n**" + group.label + "**\n\n" + bullets(group.items)
			}
		}
		if b.RealWorldContext != "" {
			out += "\n\n> " + b.RealWorldContext
		}
		return out
	}
	return header
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Entry is one post of a theme export.
type Entry struct {
	Day      int
	Document *content.Document
}

// ThemeMarkdown renders a whole theme, one post per part, separated by
// horizontal rules.
func ThemeMarkdown(theme content.Theme, entries []Entry) string {
	header := fmt.Sprintf("# %s (%02d/%d)", theme.Title, theme.Month, theme.Year)
	if theme.Description != "" {
		header += "\n\n" + theme.Description
	}

	parts := []string{header}
	for _, e := range entries {
		body := Markdown(e.Document)
		if e.Day > 0 {
			body = fmt.Sprintf("<!-- day %d -->\n", e.Day) + body
		}
		parts = append(parts, strings.TrimRight(body, "\n"))
	}
	return strings.Join(parts, "\n\n---\n\n") + "\n"
}
