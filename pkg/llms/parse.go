package llms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a leading markdown code fence (``` or ```json) and
// the matching closing fence. Providers frequently wrap JSON this way even
// when asked not to.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	// Drop the opening fence line.
	if idx := strings.IndexByte(trimmed, '\n'); idx != -1 {
		trimmed = trimmed[idx+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if idx := strings.LastIndex(trimmed, "```"); idx != -1 {
		trimmed = trimmed[:idx]
	}

	return strings.TrimSpace(trimmed)
}

// DecodeStructured parses a (possibly fenced) JSON reply into out.
func DecodeStructured(text string, out any) error {
	cleaned := StripFences(text)
	if cleaned == "" {
		return ErrEmptyResponse
	}

	// Some models prepend prose before the object; fall back to the first
	// brace-balanced slice.
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}
	if obj := firstJSONObject(cleaned); obj != "" {
		if err := json.Unmarshal([]byte(obj), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("response is not valid JSON: %.120s", cleaned)
}

func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func parseJSONObject(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
