package vision

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rawExtraction mirrors the JSON shape requested from the model.
type rawExtraction struct {
	Measurement *float64 `json:"measurement"`
	Date        *string  `json:"date"`
	Confidence  *float64 `json:"confidence"`
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one, which Gemini does fairly often despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseExtraction(content string) (Extraction, error) {
	content = stripFences(content)
	if content == "" {
		return Extraction{}, fmt.Errorf("empty extraction response")
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}

	ext := Extraction{
		Measurement: raw.Measurement,
		Confidence:  raw.Confidence,
	}
	if raw.Date != nil && strings.TrimSpace(*raw.Date) != "" {
		d, err := time.Parse(time.DateOnly, strings.TrimSpace(*raw.Date))
		if err != nil {
			return Extraction{}, fmt.Errorf("decode extraction date %q: %w", *raw.Date, err)
		}
		ext.Date = &d
	}
	return ext, nil
}
