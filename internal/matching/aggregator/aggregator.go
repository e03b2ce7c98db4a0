// internal/matching/aggregator/aggregator.go
package aggregator

import (
	"errors"
	"fmt"
	"sort"

	"matching-workers/internal/matching/geo"
	"matching-workers/internal/matching/vector"
	"matching-workers/internal/models"
)

// BuildProfile collapses one group's member records into a GroupProfile:
// mean of the member vectors re-normalized to unit norm, the union of
// dietary restrictions, the widest budget window spanned by the members'
// tiers, and the member-location centroid. Pure and deterministic — the
// same members always produce the same profile.
func BuildProfile(groupID string, members []models.Participant) (*models.GroupProfile, error) {
	if groupID == "" {
		return nil, errors.New("groupId is required")
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("group %s has no members", groupID)
	}

	vectors := make([][]float64, len(members))
	locations := make([]models.Location, len(members))
	for i, m := range members {
		vectors[i] = m.PreferenceVector
		locations[i] = m.Location
	}

	mean, err := vector.Mean(vectors)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", groupID, err)
	}
	aggregated, err := vector.Normalize(mean)
	if err != nil {
		// Opposing unit vectors can cancel to zero; surfaced as degenerate
		// input, same as the normalizer stage.
		return nil, fmt.Errorf("group %s: %w", groupID, err)
	}

	budget, err := budgetRange(members)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", groupID, err)
	}

	return &models.GroupProfile{
		GroupID:             groupID,
		AggregatedVector:    aggregated,
		DietaryRestrictions: dietaryUnion(members),
		BudgetRange:         budget,
		MemberCount:         len(members),
		Location:            geo.Centroid(locations),
	}, nil
}

// GroupInput is one group in a batch aggregation.
type GroupInput struct {
	GroupID string
	Members []models.Participant
}

// BatchItem is the per-group outcome of a batch run. A failed item carries
// the error; it never aborts its siblings.
type BatchItem struct {
	GroupID string
	Profile *models.GroupProfile
	Err     error
}

// BuildProfiles runs BuildProfile independently per group and reports each
// outcome. Order follows the input.
func BuildProfiles(groups []GroupInput) []BatchItem {
	items := make([]BatchItem, len(groups))
	for i, g := range groups {
		profile, err := BuildProfile(g.GroupID, g.Members)
		items[i] = BatchItem{GroupID: g.GroupID, Profile: profile, Err: err}
	}
	return items
}

// dietaryUnion returns the sorted, deduplicated union of all member
// restrictions. Every restriction binds the whole group downstream.
func dietaryUnion(members []models.Participant) []string {
	seen := make(map[string]struct{})
	for _, m := range members {
		for _, r := range m.DietaryRestrictions {
			seen[r] = struct{}{}
		}
	}
	union := make([]string, 0, len(seen))
	for r := range seen {
		union = append(union, r)
	}
	sort.Strings(union)
	return union
}

// budgetRange spans from the cheapest member lower bound to the most
// expensive member upper bound.
func budgetRange(members []models.Participant) (models.BudgetRange, error) {
	var out models.BudgetRange
	for i, m := range members {
		bounds, err := m.BudgetTier.Bounds()
		if err != nil {
			return models.BudgetRange{}, fmt.Errorf("member %s: %w", m.ID, err)
		}
		if i == 0 {
			out = bounds
			continue
		}
		if bounds.Min < out.Min {
			out.Min = bounds.Min
		}
		if bounds.Max > out.Max {
			out.Max = bounds.Max
		}
	}
	return out, nil
}
