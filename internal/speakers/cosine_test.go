package speakers_test

import (
	"math"
	"testing"

	"revoice/internal/speakers"
)

func TestCosineSimilaritySelf(t *testing.T) {
	v := []float64{0.3, -0.7, 0.2}
	if got := speakers.CosineSimilarity(v, v); math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("self similarity = %f", got)
	}
}

func TestCosineSimilarityBounds(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{-1, 0}
	if got := speakers.CosineSimilarity(a, b); math.Abs(got+1.0) > 1e-12 {
		t.Fatalf("opposite similarity = %f", got)
	}
	orthogonal := speakers.CosineSimilarity([]float64{1, 0}, []float64{0, 1})
	if math.Abs(orthogonal) > 1e-12 {
		t.Fatalf("orthogonal similarity = %f", orthogonal)
	}
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	if got := speakers.CosineSimilarity([]float64{0, 0}, []float64{1, 2}); got != 0.0 {
		t.Fatalf("zero-norm similarity = %f", got)
	}
	if got := speakers.CosineSimilarity(nil, nil); got != 0.0 {
		t.Fatalf("empty similarity = %f", got)
	}
	if got := speakers.CosineSimilarity([]float64{1}, []float64{1, 2}); got != 0.0 {
		t.Fatalf("mismatched length similarity = %f", got)
	}
}
