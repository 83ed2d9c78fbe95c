package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON coerces a model reply into a structured value of type T.
//
// Models asked for JSON often wrap it in prose or a ```json fence.
// Decoding is attempted in order:
//  1. the whole reply as JSON
//  2. the contents of the first code fence
//  3. the first '{' through the last '}' in the reply
//
// A reply that cannot be decoded is an error; the pipeline treats that
// as fatal for the calling step rather than guessing at the payload.
func DecodeJSON[T any](text string) (T, error) {
	var out T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return out, fmt.Errorf("structured decode: empty response")
	}

	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, nil
	}

	if fenced, ok := extractFence(trimmed); ok {
		if err := json.Unmarshal([]byte(fenced), &out); err == nil {
			return out, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || start >= end {
		return out, fmt.Errorf("structured decode: no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &out); err != nil {
		return out, fmt.Errorf("structured decode: %w", err)
	}
	return out, nil
}

// extractFence returns the body of the first ``` code fence, if any.
func extractFence(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open == -1 {
		return "", false
	}
	rest := text[open+3:]
	if nl := strings.Index(rest, "\n"); nl != -1 {
		// Drop a language tag such as "json" on the fence line.
		rest = rest[nl+1:]
	}
	stop := strings.Index(rest, "```")
	if stop == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:stop]), true
}
