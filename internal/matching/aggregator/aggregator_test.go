// internal/matching/aggregator/aggregator_test.go
package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-workers/internal/matching/vector"
	"matching-workers/internal/models"
)

func unitVec(axis int) []float64 {
	v := make([]float64, vector.Dim)
	v[axis] = 1.0
	return v
}

func member(id string, tier models.BudgetTier, restrictions []string, axis int) models.Participant {
	return models.Participant{
		ID:                  id,
		DietaryRestrictions: restrictions,
		BudgetTier:          tier,
		Location:            models.Location{Lat: 37.77, Lng: -122.41},
		PreferenceVector:    unitVec(axis),
	}
}

func fourMembers() []models.Participant {
	return []models.Participant{
		member("u-1", models.BudgetLow, []string{"vegan"}, 0),
		member("u-2", models.BudgetMedium, []string{"gluten-free", "vegan"}, 0),
		member("u-3", models.BudgetMedium, nil, 1),
		member("u-4", models.BudgetHigh, []string{"halal"}, 1),
	}
}

func TestBuildProfile(t *testing.T) {
	profile, err := BuildProfile("group-001", fourMembers())
	require.NoError(t, err)

	assert.Equal(t, "group-001", profile.GroupID)
	assert.Equal(t, 4, profile.MemberCount)

	// Mean-then-normalize gives a unit vector
	assert.InDelta(t, 1.0, vector.Norm(profile.AggregatedVector), 1e-9)

	// Sorted union of every member's restrictions
	assert.Equal(t, []string{"gluten-free", "halal", "vegan"}, profile.DietaryRestrictions)

	// Low member pins the floor, high member pins the ceiling
	assert.Equal(t, 0.0, profile.BudgetRange.Min)
	assert.Equal(t, models.HighTierMax, profile.BudgetRange.Max)

	// Identical member locations collapse to the same centroid
	assert.InDelta(t, 37.77, profile.Location.Lat, 1e-9)
	assert.InDelta(t, -122.41, profile.Location.Lng, 1e-9)
}

func TestBuildProfile_Deterministic(t *testing.T) {
	first, err := BuildProfile("group-001", fourMembers())
	require.NoError(t, err)
	second, err := BuildProfile("group-001", fourMembers())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildProfile_MediumOnlyBudget(t *testing.T) {
	members := []models.Participant{
		member("u-1", models.BudgetMedium, nil, 0),
		member("u-2", models.BudgetMedium, nil, 0),
		member("u-3", models.BudgetMedium, nil, 1),
		member("u-4", models.BudgetMedium, nil, 1),
	}
	profile, err := BuildProfile("group-001", members)
	require.NoError(t, err)
	assert.Equal(t, models.BudgetRange{Min: 20, Max: 50}, profile.BudgetRange)
}

func TestBuildProfile_NoRestrictions(t *testing.T) {
	members := []models.Participant{
		member("u-1", models.BudgetMedium, nil, 0),
		member("u-2", models.BudgetMedium, nil, 1),
		member("u-3", models.BudgetMedium, nil, 2),
		member("u-4", models.BudgetMedium, nil, 3),
	}
	profile, err := BuildProfile("group-001", members)
	require.NoError(t, err)
	assert.Empty(t, profile.DietaryRestrictions)
}

func TestBuildProfile_Errors(t *testing.T) {
	t.Run("empty group id", func(t *testing.T) {
		_, err := BuildProfile("", fourMembers())
		assert.Error(t, err)
	})

	t.Run("no members", func(t *testing.T) {
		_, err := BuildProfile("group-001", nil)
		assert.Error(t, err)
	})

	t.Run("unknown budget tier", func(t *testing.T) {
		members := fourMembers()
		members[2].BudgetTier = "lavish"
		_, err := BuildProfile("group-001", members)
		assert.Error(t, err)
	})

	t.Run("wrong vector dimension", func(t *testing.T) {
		members := fourMembers()
		members[0].PreferenceVector = []float64{1, 2}
		_, err := BuildProfile("group-001", members)
		assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	})

	t.Run("opposing vectors cancel to zero", func(t *testing.T) {
		a := member("u-1", models.BudgetMedium, nil, 0)
		b := member("u-2", models.BudgetMedium, nil, 0)
		b.PreferenceVector[0] = -1.0
		_, err := BuildProfile("group-001", []models.Participant{a, b})
		assert.ErrorIs(t, err, vector.ErrZeroNorm)
	})
}

func TestBuildProfiles_PartialFailure(t *testing.T) {
	opposing := []models.Participant{
		member("u-5", models.BudgetMedium, nil, 0),
		member("u-6", models.BudgetMedium, nil, 0),
	}
	opposing[1].PreferenceVector[0] = -1.0

	items := BuildProfiles([]GroupInput{
		{GroupID: "group-001", Members: fourMembers()},
		{GroupID: "group-002", Members: opposing},
		{GroupID: "group-003"},
		{GroupID: "group-004", Members: fourMembers()},
	})

	require.Len(t, items, 4)

	// Outcomes follow the input order.
	assert.Equal(t, "group-001", items[0].GroupID)
	require.NoError(t, items[0].Err)
	assert.Equal(t, 4, items[0].Profile.MemberCount)

	assert.ErrorIs(t, items[1].Err, vector.ErrZeroNorm)
	assert.Nil(t, items[1].Profile)

	assert.Error(t, items[2].Err)
	assert.Nil(t, items[2].Profile)

	// A failed sibling leaves later groups untouched.
	require.NoError(t, items[3].Err)
	assert.Equal(t, "group-004", items[3].Profile.GroupID)
}

func TestBuildProfiles_Empty(t *testing.T) {
	assert.Empty(t, BuildProfiles(nil))
}

func TestBuildProfile_CentroidLocation(t *testing.T) {
	members := fourMembers()
	members[0].Location = models.Location{Lat: 0, Lng: 0}
	members[1].Location = models.Location{Lat: 2, Lng: 4}
	members[2].Location = models.Location{Lat: 4, Lng: 8}
	members[3].Location = models.Location{Lat: 6, Lng: 12}

	profile, err := BuildProfile("group-001", members)
	require.NoError(t, err)
	assert.Equal(t, models.Location{Lat: 3, Lng: 6}, profile.Location)
}
