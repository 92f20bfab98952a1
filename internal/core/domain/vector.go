package domain

import (
	"fmt"
	"math"
)

// Vector is an embedding produced by the embedding service.
type Vector []float32

// Dot returns the dot product of v and other.
func (v Vector) Dot(other Vector) (float64, error) {
	if len(v) != len(other) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(v), len(other))
	}
	var sum float64
	for i := range v {
		sum += float64(v[i]) * float64(other[i])
	}
	return sum, nil
}

// Magnitude returns the Euclidean norm of v.
func (v Vector) Magnitude() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|).
// A zero-length vector has no direction, so its similarity to anything is 0.
func CosineSimilarity(a, b Vector) (float64, error) {
	dot, err := a.Dot(b)
	if err != nil {
		return 0, err
	}
	norm := a.Magnitude() * b.Magnitude()
	if norm == 0 {
		return 0, nil
	}
	sim := dot / norm
	// Clamp float rounding drift
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}
