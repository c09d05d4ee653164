package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// oracleResponse is the structured payload the oracle is asked for.
type oracleResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ParseError reports that no usable payload could be extracted from the
// raw oracle text. The gateway coerces it to the (none, 0.0) outcome;
// it never reaches the orchestrator.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "unparsable oracle response: " + e.Reason
}

// parseOracleResponse extracts the first well-formed JSON object from
// raw response text, tolerating surrounding prose and markdown fences.
// Parse-or-fail: an absent, malformed, or out-of-range payload is a
// ParseError, never a silently guessed default.
func parseOracleResponse(raw string) (oracleResponse, error) {
	var parsed oracleResponse

	payload, ok := extractJSONObject(stripFences(raw))
	if !ok {
		return parsed, &ParseError{Reason: "no JSON object found"}
	}

	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return parsed, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if parsed.Confidence < 0.0 || parsed.Confidence > 1.0 {
		return oracleResponse{}, &ParseError{Reason: fmt.Sprintf("confidence %v outside [0,1]", parsed.Confidence)}
	}

	return parsed, nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```json") {
		raw = strings.TrimPrefix(raw, "```json")
	} else if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

// extractJSONObject finds the first balanced top-level {...} in text,
// respecting string literals and escapes.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
