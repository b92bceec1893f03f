package vision

import (
	"encoding/json"
	"fmt"
)

// extractJSON pulls the first balanced {...} object out of free-form model
// output. Providers wrap the JSON in prose or markdown fences often enough
// that plain unmarshalling is hopeless.
func extractJSON(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", fmt.Errorf("no JSON object found in response")
}

func parseAnalysis(text string) (*Analysis, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("parsing analysis JSON [%s]: %w", raw, err)
	}
	return &analysis, nil
}
