package services

import (
	"errors"
	"strings"
)

var (
	// ErrNoJSONObject is returned when the reply contains no opening brace.
	ErrNoJSONObject = errors.New("no JSON object found in response")
	// ErrUnbalancedJSON is returned when braces never balance.
	ErrUnbalancedJSON = errors.New("unbalanced JSON object in response")
)

// ExtractJSONObject pulls the first complete JSON object out of a possibly
// noisy model reply. The reply may wrap the object in markdown code fences or
// surround it with prose; braces inside double-quoted strings (including
// escaped quotes) do not count toward nesting depth.
func ExtractJSONObject(response string) (string, error) {
	start := strings.IndexByte(response, '{')
	if start == -1 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(response); i++ {
		c := response[i]

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
				return response[start : i+1], nil
			}
		}
	}

	return "", ErrUnbalancedJSON
}
