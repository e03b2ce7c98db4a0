// internal/workers/matching/match-groups/models.go
package matchgroups

import "matching-workers/internal/models"

// Input carries the roster inline, or an eventId whose registered
// participants are fetched from storage.
type Input struct {
	EventID      string               `json:"eventId,omitempty"`
	Participants []models.Participant `json:"participants,omitempty"`
}

type Output struct {
	Groups         []models.Group `json:"groups"`
	UnmatchedUsers []string       `json:"unmatchedUsers"`
	TotalGroups    int            `json:"totalGroups"`
}
