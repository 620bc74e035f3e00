package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SerializeVector renders a vector as "[v1,v2,...]" with no embedded
// whitespace. This is the canonical storage form for TicketEmbedding.Vector.
func SerializeVector(vector []float64) string {
	if len(vector) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVector parses the canonical form back into floats. Elements may carry
// surrounding whitespace.
func ParseVector(s string) ([]float64, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("vector %q is not a bracketed list", s)
	}
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return []float64{}, nil
	}
	parts := strings.Split(inner, ",")
	vector := make([]float64, 0, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("vector element %d: %w", i, err)
		}
		vector = append(vector, v)
	}
	return vector, nil
}
