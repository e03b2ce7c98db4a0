// internal/workers/matching/aggregate-group/models.go
package aggregategroup

import "matching-workers/internal/models"

// Input carries one group's members inline, member IDs whose records are
// fetched from storage, or a batch of groups.
type Input struct {
	GroupID   string               `json:"groupId"`
	Members   []models.Participant `json:"members,omitempty"`
	MemberIDs []string             `json:"memberIds,omitempty"`
	Groups    []GroupInput         `json:"groups,omitempty"`
}

// GroupInput is one group in a batch request.
type GroupInput struct {
	GroupID   string               `json:"groupId"`
	Members   []models.Participant `json:"members,omitempty"`
	MemberIDs []string             `json:"memberIds,omitempty"`
}

// GroupError is one group's failure record in a batch response.
type GroupError struct {
	GroupID string `json:"groupId"`
	Code    string `json:"errorCode"`
	Message string `json:"errorMessage"`
}

// Output carries the profile for a single-group request, or the per-group
// outcomes for a batch.
type Output struct {
	GroupProfile models.GroupProfile   `json:"groupProfile,omitempty"`
	Profiles     []models.GroupProfile `json:"groupProfiles,omitempty"`
	FailedGroups []GroupError          `json:"failedGroups,omitempty"`
}
