// internal/matching/assigner/reasons.go
package assigner

import (
	"fmt"

	"matching-workers/internal/models"
)

const (
	highSimilarityThreshold = 0.8
	goodSimilarityThreshold = 0.5
)

// matchReasons renders the user-facing explanation of why a restaurant was
// chosen. Only criteria that actually scored well are mentioned.
func matchReasons(profile models.GroupProfile, c candidate, maxDistance float64) []string {
	reasons := []string{}

	switch {
	case c.similarity >= highSimilarityThreshold:
		reasons = append(reasons, "High cuisine preference match")
	case c.similarity >= goodSimilarityThreshold:
		reasons = append(reasons, "Good cuisine preference match")
	}

	if len(profile.DietaryRestrictions) > 0 {
		reasons = append(reasons, "All dietary restrictions met")
	}

	reasons = append(reasons, "Within budget range")

	if c.distanceKm <= maxDistance/2 {
		reasons = append(reasons, fmt.Sprintf("Only %.1f km from the group", c.distanceKm))
	} else {
		reasons = append(reasons, fmt.Sprintf("Within %.1f km of the group", maxDistance))
	}

	return reasons
}
