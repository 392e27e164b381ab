package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ehagey/cra-legal-matching/model"
)

// parsedResponse is the wire shape the analysis model is asked to produce
type parsedResponse struct {
	Classification string        `json:"classification"`
	Summary        string        `json:"summary"`
	Matches        []model.Match `json:"matches"`
	Analysis       string        `json:"analysis"`
	Error          string        `json:"error"`
}

// ParseStrategy attempts to extract a structured response from raw model
// output. Strategies are tried in order until one succeeds; extraction of
// JSON from free text is best-effort by nature, so new strategies can be
// appended without touching the executor.
type ParseStrategy func(content string) (*parsedResponse, bool)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// DefaultParseStrategies is the ordered fallback chain: strict parse,
// fenced markdown block, first brace-delimited span.
var DefaultParseStrategies = []ParseStrategy{
	parseDirect,
	parseFencedBlock,
	parseBraceSpan,
}

func parseDirect(content string) (*parsedResponse, bool) {
	return tryUnmarshal(strings.TrimSpace(content))
}

func parseFencedBlock(content string) (*parsedResponse, bool) {
	m := fencedJSONRe.FindStringSubmatch(content)
	if m == nil {
		return nil, false
	}
	return tryUnmarshal(m[1])
}

func parseBraceSpan(content string) (*parsedResponse, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return tryUnmarshal(content[start : end+1])
}

func tryUnmarshal(s string) (*parsedResponse, bool) {
	var r parsedResponse
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, false
	}
	if r.Classification == "" {
		return nil, false
	}
	return &r, true
}

// parseResponse runs the strategy chain over raw model output. A content
// blob no strategy can handle yields an ERROR result rather than an error,
// so one unparseable response never aborts the batch.
func parseResponse(content string, strategies []ParseStrategy) parsedResponse {
	for _, strategy := range strategies {
		if r, ok := strategy(content); ok {
			normalize(r)
			return *r
		}
	}

	head := truncateRunes(content, 500)
	if head != content {
		head += "…"
	}
	return parsedResponse{
		Classification: model.ClassError,
		Summary:        "Failed to parse JSON response from API",
		Matches:        []model.Match{},
		Analysis:       "Raw response: " + head,
		Error:          "JSON parsing failed",
	}
}

// truncateRunes caps s at max runes so a cut never splits a multi-byte rune
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// normalize enforces the classification policy on a parsed response:
// IDENTICAL needs a located match and no recorded differences, SIMILAR
// needs at least one located match with a difference, NOT_PRESENT needs no
// located match. The top-level classification is derived from the matches
// so the reported verdict can never contradict them.
func normalize(r *parsedResponse) {
	if r.Matches == nil {
		r.Matches = []model.Match{}
	}

	if r.Classification == model.ClassError {
		// keep; the model reported its own failure
		return
	}
	r.Classification = deriveClassification(r.Matches)
}

func deriveClassification(matches []model.Match) string {
	located := false
	hasDifferences := false
	for _, m := range matches {
		if m.Type == model.ClassNotPresent || m.FullText == "" {
			continue
		}
		located = true
		if len(m.Differences) > 0 {
			hasDifferences = true
		}
	}
	switch {
	case !located:
		return model.ClassNotPresent
	case hasDifferences:
		return model.ClassSimilar
	default:
		return model.ClassIdentical
	}
}
