// internal/models/group.go
package models

// Group is one compatibility group produced by a match-groups run.
// Groups are never edited after creation; a re-match produces new ones.
type Group struct {
	GroupID            string   `json:"groupId"`
	MemberIDs          []string `json:"members"`
	CompatibilityScore float64  `json:"compatibilityScore"`
}

// Size returns the member count.
func (g Group) Size() int {
	return len(g.MemberIDs)
}

// GroupProfile is the aggregated representation of one Group, the unit the
// restaurant matcher works with. The location is the member centroid.
type GroupProfile struct {
	GroupID             string      `json:"groupId"`
	AggregatedVector    []float64   `json:"aggregatedPreferenceVector"`
	DietaryRestrictions []string    `json:"dietaryRestrictions"`
	BudgetRange         BudgetRange `json:"budgetRange"`
	MemberCount         int         `json:"memberCount"`
	Location            Location    `json:"location"`
}
