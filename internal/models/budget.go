// internal/models/budget.go
package models

import "fmt"

// BudgetTier is the ordered spending tier captured during onboarding.
type BudgetTier string

const (
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetHigh   BudgetTier = "high"
)

// HighTierMax caps the open-ended upper tier so budget ranges stay
// JSON-representable.
const HighTierMax = 500.0

// BudgetRange is a per-person spend window in currency units.
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Overlaps reports whether two ranges share at least one point.
func (r BudgetRange) Overlaps(other BudgetRange) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// Bounds maps a tier to its per-person spend window.
func (t BudgetTier) Bounds() (BudgetRange, error) {
	switch t {
	case BudgetLow:
		return BudgetRange{Min: 0, Max: 20}, nil
	case BudgetMedium:
		return BudgetRange{Min: 20, Max: 50}, nil
	case BudgetHigh:
		return BudgetRange{Min: 50, Max: HighTierMax}, nil
	}
	return BudgetRange{}, fmt.Errorf("unknown budget tier %q", string(t))
}

// Valid reports whether t is one of the three known tiers.
func (t BudgetTier) Valid() bool {
	_, err := t.Bounds()
	return err == nil
}
