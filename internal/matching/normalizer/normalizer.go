// internal/matching/normalizer/normalizer.go
package normalizer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"matching-workers/internal/matching/vector"
)

// EmbeddingCount is the number of raw embeddings combined per user: dining
// style, cuisine preference, and social preference, in that order.
const EmbeddingCount = 3

const weightSumTolerance = 1e-6

var ErrInvalidWeights = errors.New("VALIDATION_FAILED")

// DefaultWeights is the combination applied when a request carries none.
func DefaultWeights() []float64 {
	return []float64{0.5, 0.3, 0.2}
}

// Request is one user's normalization input.
type Request struct {
	UserID     string
	Embeddings [][]float64
	Weights    []float64 // nil means DefaultWeights
}

// Result is one user's unit-norm preference vector.
type Result struct {
	UserID           string
	PreferenceVector []float64
	ProcessingTimeMs float64
}

// BatchItem is the per-user outcome of a batch run. A failed item carries
// the error; it never aborts its siblings.
type BatchItem struct {
	UserID string
	Result *Result
	Err    error
}

// ValidateWeights checks that w has one weight per embedding, no negative
// entries, and sums to 1.0 within tolerance.
func ValidateWeights(w []float64) error {
	if len(w) != EmbeddingCount {
		return fmt.Errorf("%w: expected %d weights, got %d", ErrInvalidWeights, EmbeddingCount, len(w))
	}
	sum := 0.0
	for i, x := range w {
		if x < 0 {
			return fmt.Errorf("%w: weight %d is negative", ErrInvalidWeights, i+1)
		}
		sum += x
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1.0, got %g", ErrInvalidWeights, sum)
	}
	return nil
}

// Normalize combines the user's raw embeddings into a single unit-norm
// preference vector: weighted elementwise sum, then L2 normalization.
func Normalize(req Request) (*Result, error) {
	start := time.Now()

	if len(req.Embeddings) != EmbeddingCount {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			ErrInvalidWeights, EmbeddingCount, len(req.Embeddings))
	}

	weights := req.Weights
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}

	combined, err := vector.WeightedSum(req.Embeddings, weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}

	normalized, err := vector.Normalize(combined)
	if err != nil {
		return nil, err
	}

	return &Result{
		UserID:           req.UserID,
		PreferenceVector: normalized,
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// NormalizeBatch runs Normalize independently per request and reports each
// outcome. Order follows the input.
func NormalizeBatch(reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))
	for i, req := range reqs {
		result, err := Normalize(req)
		items[i] = BatchItem{UserID: req.UserID, Result: result, Err: err}
	}
	return items
}
