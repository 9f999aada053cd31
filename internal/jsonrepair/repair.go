// Package jsonrepair recovers structured JSON from imperfect LLM
// output. Model responses routinely wrap JSON in markdown fences,
// prepend conversational chatter, drop closing braces, or get cut off
// mid-value; the cascade here tries progressively more aggressive
// rewrites until one parses.
package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Extract returns the first parseable JSON document recoverable from
// raw model output, and whether recovery succeeded. The returned bytes
// are valid JSON when ok is true.
func Extract(raw string) ([]byte, bool) {
	if raw == "" {
		return nil, false
	}

	candidate := raw
	for _, s := range strategies {
		candidate = s.apply(candidate)
		if candidate == "" {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), true
		}
	}

	// last resort: scrape recognizable key-value pairs into a flat object
	if assembled, ok := AssembleKnownKeys(raw); ok {
		return assembled, true
	}
	return nil, false
}

// Parse runs Extract and unmarshals the result into a generic value.
func Parse(raw string) (any, bool) {
	data, ok := Extract(raw)
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

// Unmarshal runs Extract and decodes the result into dst.
func Unmarshal(raw string, dst any) error {
	data, ok := Extract(raw)
	if !ok {
		return &RecoveryError{Raw: raw}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &RecoveryError{Raw: raw, Cause: err}
	}
	return nil
}

// RecoveryError reports model output from which no JSON could be recovered
type RecoveryError struct {
	Raw   string
	Cause error
}

func (e *RecoveryError) Error() string {
	preview := e.Raw
	if len(preview) > 120 {
		preview = preview[:120] + "..."
	}
	if e.Cause != nil {
		return "no JSON recoverable from model output: " + e.Cause.Error() + " (output: " + preview + ")"
	}
	return "no JSON recoverable from model output (output: " + preview + ")"
}

func (e *RecoveryError) Unwrap() error { return e.Cause }

var (
	stringPairRe = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	numberPairRe = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:\s*(-?\d+(?:\.\d+)?)`)
)

// AssembleKnownKeys scrapes top-level "key": value pairs out of text
// that no strategy could repair and assembles them into a flat JSON
// object. Structure is lost but scalar fields survive, which is enough
// for callers that only need a few named values.
func AssembleKnownKeys(text string) ([]byte, bool) {
	pairs := make(map[string]any)

	for _, m := range stringPairRe.FindAllStringSubmatch(text, -1) {
		var v string
		if err := json.Unmarshal([]byte(`"`+m[2]+`"`), &v); err == nil {
			pairs[m[1]] = v
		}
	}
	for _, m := range numberPairRe.FindAllStringSubmatch(text, -1) {
		if _, exists := pairs[m[1]]; exists {
			continue
		}
		if strings.Contains(m[2], ".") {
			var f float64
			if err := json.Unmarshal([]byte(m[2]), &f); err == nil {
				pairs[m[1]] = f
			}
		} else {
			var n int64
			if err := json.Unmarshal([]byte(m[2]), &n); err == nil {
				pairs[m[1]] = n
			}
		}
	}

	if len(pairs) == 0 {
		return nil, false
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return nil, false
	}
	return data, true
}
