package query

import (
	"math"
	"strconv"
	"strings"
)

// VectorLiteral renders v in pgvector text form: "[0.1,0.2,...]".
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*12 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// AbbreviateVector shortens a vector literal for logs: the first n components
// followed by the total dimension count.
func AbbreviateVector(literal string, n int) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(literal, "["), "]")
	if inner == "" {
		return literal
	}
	parts := strings.Split(inner, ",")
	if len(parts) <= n {
		return literal
	}
	return "[" + strings.Join(parts[:n], ",") + ",...](" + strconv.Itoa(len(parts)) + " dims)"
}

func finite(v []float32) bool {
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}
	return true
}
