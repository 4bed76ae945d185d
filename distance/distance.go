// Package distance provides the vector math used by the index engines:
// squared L2 distance, cosine similarity, L2 normalization and the mapping
// from distance to the caller-facing similarity score.
package distance

import (
	"math"
	"slices"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns 0 if either vector has zero magnitude.
func CosineSimilarity(a, b []float32) float32 {
	magA := Dot(a, a)
	magB := Dot(b, b)
	if magA == 0 || magB == 0 {
		return 0
	}
	return Dot(a, b) / (Sqrt(magA) * Sqrt(magB))
}

// Sqrt is a float32 square root.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / Sqrt(norm2)
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// Similarity maps a squared L2 distance between two L2-normalized vectors to
// a similarity score in [0, 1]. The distance between unit vectors lies in
// [0, 4], so the mapping is 1 - d/4, clamped against floating point drift.
// It is strictly monotonically decreasing in d over the valid range.
func Similarity(dist float32) float32 {
	s := 1 - dist/4
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
