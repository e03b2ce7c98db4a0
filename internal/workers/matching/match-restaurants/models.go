// internal/workers/matching/match-restaurants/models.go
package matchrestaurants

import "matching-workers/internal/models"

// Input carries the group profiles to place and, optionally, an inline
// restaurant catalog. Without one the catalog is searched per group area.
type Input struct {
	GroupProfiles []models.GroupProfile `json:"groupProfiles"`
	Restaurants   []models.Restaurant   `json:"restaurants,omitempty"`
	MaxDistanceKm float64               `json:"maxDistanceKm,omitempty"`
}

type Output struct {
	Matches            []models.Match `json:"matches"`
	UnmatchedGroups    []string       `json:"unmatchedGroups"`
	TotalMatched       int            `json:"totalMatched"`
	SkippedRestaurants []string       `json:"skippedRestaurants,omitempty"`
}
