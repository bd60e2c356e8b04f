package extract

import (
	"encoding/json"
	"strings"
)

// RawLimit bounds the raw text kept on a failed extraction.
const RawLimit = 500

const fence = "```"

// Extraction is the outcome of Parse.
type Extraction struct {
	Value map[string]any
	OK    bool
	// Raw holds the truncated input when OK is false.
	Raw string
}

// Parse runs Object and wraps the outcome, keeping a truncated copy of the input on failure.
func Parse(text string) Extraction {
	if v, ok := Object(text); ok {
		return Extraction{Value: v, OK: true}
	}
	return Extraction{Raw: Truncate(text, RawLimit)}
}

// Object recovers a JSON object from text. Strategies are tried in order and the first success wins:
//  1. the whole trimmed text;
//  2. the interior of each fenced code block (with or without a language tag);
//  3. from the first '{', prefixes ending at each '}' scanning backward from the last one.
func Object(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	if v, ok := decodeObject(trimmed); ok {
		return v, true
	}

	for _, block := range fencedBlocks(trimmed) {
		if v, ok := decodeObject(block); ok {
			return v, true
		}
	}

	return scanBraces(trimmed)
}

func decodeObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, v != nil
}

// fencedBlocks returns the interior of every ``` block, skipping the language tag line.
func fencedBlocks(s string) []string {
	var blocks []string
	rest := s
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			return blocks
		}
		body := rest[open+len(fence):]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.Contains(body[:nl], "{") {
			body = body[nl+1:]
		}
		closing := strings.Index(body, fence)
		if closing < 0 {
			// Unterminated fence: the remainder is the best candidate we have.
			return append(blocks, body)
		}
		blocks = append(blocks, body[:closing])
		rest = body[closing+len(fence):]
	}
}

func scanBraces(s string) (map[string]any, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, false
	}
	end := strings.LastIndexByte(s, '}')
	for end > start {
		if v, ok := decodeObject(s[start : end+1]); ok {
			return v, true
		}
		end = strings.LastIndexByte(s[:end], '}')
	}
	return nil, false
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
