// internal/matching/vector/vector.go
package vector

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Dim is the embedding width every stage of the pipeline operates on.
// Vectors of any other length are rejected before computation.
const Dim = 768

var (
	ErrDimensionMismatch = errors.New("DIMENSION_MISMATCH")
	ErrZeroNorm          = errors.New("DEGENERATE_INPUT")
)

// CheckDim validates that v has the expected embedding width.
func CheckDim(v []float64) error {
	if len(v) != Dim {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrDimensionMismatch, Dim, len(v))
	}
	return nil
}

// Norm returns the Euclidean (L2) norm of v.
func Norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// Normalize returns a new unit-norm copy of v. A zero-norm input cannot be
// normalized and yields ErrZeroNorm.
func Normalize(v []float64) ([]float64, error) {
	norm := Norm(v)
	if norm == 0 {
		return nil, fmt.Errorf("%w: zero-norm vector cannot be normalized", ErrZeroNorm)
	}
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(1/norm, out)
	return out, nil
}

// WeightedSum computes sum(weights[i] * vectors[i]) elementwise. Every
// vector must have the pipeline dimension and len(weights) must equal
// len(vectors).
func WeightedSum(vectors [][]float64, weights []float64) ([]float64, error) {
	if len(vectors) != len(weights) {
		return nil, fmt.Errorf("got %d vectors but %d weights", len(vectors), len(weights))
	}
	for i, v := range vectors {
		if err := CheckDim(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i+1, err)
		}
	}
	out := make([]float64, Dim)
	for i, v := range vectors {
		floats.AddScaled(out, weights[i], v)
	}
	return out, nil
}

// Mean returns the elementwise mean of the given vectors. All vectors must
// share the pipeline dimension.
func Mean(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, errors.New("mean of zero vectors is undefined")
	}
	for i, v := range vectors {
		if err := CheckDim(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i+1, err)
		}
	}
	out := make([]float64, Dim)
	for _, v := range vectors {
		floats.Add(out, v)
	}
	floats.Scale(1/float64(len(vectors)), out)
	return out, nil
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. Either input
// having zero norm yields 0 rather than NaN.
func Cosine(a, b []float64) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// Usable reports whether v can participate in similarity computations:
// correct dimension and a nonzero norm.
func Usable(v []float64) bool {
	return len(v) == Dim && Norm(v) != 0
}
