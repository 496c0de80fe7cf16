package modelsvc

import (
	"encoding/json"
	"strings"
)

// StripCodeFences removes a wrapping Markdown code fence (```json, ```html,
// or a bare ```) from model output. Content without fences passes through
// trimmed.
func StripCodeFences(s string) string {
	out := strings.TrimSpace(s)
	for _, tag := range []string{"```json", "```html", "```"} {
		if strings.HasPrefix(out, tag) {
			out = out[len(tag):]
			break
		}
	}
	out = strings.TrimSpace(out)
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}

// ExtractJSON returns the JSON payload of model output. Fences are stripped
// first; content that is already valid JSON passes through untouched, and
// anything else falls back to the first balanced object span so prose-wrapped
// responses still decode. With no object present the stripped content comes
// back as is and the caller's decode reports the failure.
func ExtractJSON(s string) string {
	out := StripCodeFences(s)
	if json.Valid([]byte(out)) {
		return out
	}
	if obj := FirstJSONObject(out); obj != "" {
		return obj
	}
	return out
}

// FirstJSONObject returns the first balanced {...} span in s, or "" when
// none exists. Fallback for models that wrap JSON in prose.
func FirstJSONObject(s string) string {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
