// Package llmjson recovers a JSON object from chat model output.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/allbravos/styletelling-ai/internal/domain"
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// Extract returns the outermost JSON object found in text.
// Code fences and typographic quotes are removed first.
func Extract(text string) (json.RawMessage, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = quoteReplacer.Replace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json object in %d bytes of output: %w", len(text), domain.ErrOracleMalformedOutput)
	}
	raw := s[start : end+1]
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("invalid json object: %w", domain.ErrOracleMalformedOutput)
	}
	return json.RawMessage(raw), nil
}
