package speakers

import "math"

// CosineSimilarity returns dot(a,b) / (||a||*||b||). Mismatched lengths or a
// zero-norm vector yield 0.0 so degenerate embeddings never match anything.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
