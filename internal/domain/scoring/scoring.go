// Package scoring holds the vector math used to rank candidates.
package scoring

import "math"

// Normalize scales v to unit length. A zero vector yields a zero vector of
// the same length.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	out := make([]float64, len(v))
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Cosine returns the dot product of a and b over their common prefix.
//
// It does not divide by the norms: stored embeddings are normalized when
// written, so the result equals cosine similarity only for unit vectors.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}
