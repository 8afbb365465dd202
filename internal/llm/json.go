package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

// ExtractJSON returns the JSON payload of a model response, handling
// markdown code fences and prose around the value.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		if len(lines) > 1 {
			text = strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
		}
	}

	if text == "" || json.Valid([]byte(text)) {
		return text
	}

	// Grounded answers wrap the value in prose, which may carry its own
	// brackets such as "[1]" citation markers. Take the longest complete
	// value; values nested inside an earlier one are skipped.
	best := ""
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err != nil {
			continue
		}
		if len(raw) > len(best) {
			best = string(raw)
		}
		i += len(raw) - 1
	}
	if best == "" {
		return text
	}
	return best
}
