// internal/models/participant.go
package models

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Participant is one member of a matching roster. Records are supplied by
// the upstream profile store and are read-only inside the pipeline.
type Participant struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	DietaryRestrictions []string   `json:"dietaryRestrictions"`
	BudgetTier          BudgetTier `json:"budgetTier"`
	Location            Location   `json:"location"`
	PreferenceVector    []float64  `json:"preferenceVector"`
}
