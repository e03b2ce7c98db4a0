// internal/workers/matching/match-restaurants/handler_test.go
package matchrestaurants

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"matching-workers/internal/common/logger"
	"matching-workers/internal/common/validation"
	"matching-workers/internal/matching/vector"
	"matching-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{
		RestaurantIndex: "restaurants",
		MaxDistanceKm:   5.0,
		Timeout:         10 * time.Second,
	}
}

func basis(i int) []float64 {
	v := make([]float64, vector.Dim)
	v[i] = 1.0
	return v
}

// downtown is the shared test neighborhood; every fixture restaurant sits
// within a couple of kilometers of it unless a test moves it.
var downtown = models.Location{Lat: 37.7749, Lng: -122.4194}

func testProfile(groupID string, axis int, restrictions []string) models.GroupProfile {
	return models.GroupProfile{
		GroupID:             groupID,
		AggregatedVector:    basis(axis),
		DietaryRestrictions: restrictions,
		BudgetRange:         models.BudgetRange{Min: 20, Max: 50},
		MemberCount:         4,
		Location:            downtown,
	}
}

func testRestaurant(id string, axis int, options []string, capacity int) models.Restaurant {
	return models.Restaurant{
		ID:             id,
		Name:           "Restaurant " + id,
		CuisineVector:  basis(axis),
		DietaryOptions: options,
		PriceRange:     models.BudgetRange{Min: 15, Max: 60},
		Location:       models.Location{Lat: downtown.Lat + 0.01, Lng: downtown.Lng},
		Capacity:       capacity,
		Rating:         4.2,
	}
}

func newHandler(t *testing.T, cfg *Config) (*Handler, sqlmock.Sqlmock) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHandler(cfg, db, nil, logger.NewTestLogger(t)), dbMock
}

func TestExecute_MatchesBestRestaurant(t *testing.T) {
	handler, _ := newHandler(t, createTestConfig())

	input := &Input{
		GroupProfiles: []models.GroupProfile{testProfile("group-001", 0, nil)},
		Restaurants: []models.Restaurant{
			testRestaurant("r-italian", 0, nil, 2),
			testRestaurant("r-sushi", 1, nil, 2),
		},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	require.Len(t, output.Matches, 1)
	assert.Equal(t, "r-italian", output.Matches[0].RestaurantID)
	assert.Equal(t, 1, output.TotalMatched)
	assert.Empty(t, output.UnmatchedGroups)
	assert.NotEmpty(t, output.Matches[0].MatchReasons)
}

func TestExecute_DietarySafety(t *testing.T) {
	handler, _ := newHandler(t, createTestConfig())

	input := &Input{
		GroupProfiles: []models.GroupProfile{
			testProfile("group-001", 0, []string{"vegan", "gluten-free"}),
		},
		Restaurants: []models.Restaurant{
			// Best cuisine fit but missing gluten-free.
			testRestaurant("r-close-fit", 0, []string{"vegan"}, 2),
			testRestaurant("r-safe", 1, []string{"vegan", "gluten-free", "halal"}, 2),
		},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	require.Len(t, output.Matches, 1)
	assert.Equal(t, "r-safe", output.Matches[0].RestaurantID)
}

func TestExecute_UnmatchableGroup(t *testing.T) {
	handler, _ := newHandler(t, createTestConfig())

	far := testRestaurant("r-far", 0, nil, 2)
	far.Location = models.Location{Lat: downtown.Lat + 1.0, Lng: downtown.Lng}

	input := &Input{
		GroupProfiles: []models.GroupProfile{testProfile("group-001", 0, nil)},
		Restaurants:   []models.Restaurant{far},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Empty(t, output.Matches)
	assert.Equal(t, []string{"group-001"}, output.UnmatchedGroups)
}

func TestExecute_DistanceOverride(t *testing.T) {
	handler, _ := newHandler(t, createTestConfig())

	far := testRestaurant("r-far", 0, nil, 2)
	far.Location = models.Location{Lat: downtown.Lat + 0.1, Lng: downtown.Lng} // ~11 km

	input := &Input{
		GroupProfiles: []models.GroupProfile{testProfile("group-001", 0, nil)},
		Restaurants:   []models.Restaurant{far},
		MaxDistanceKm: 20,
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	require.Len(t, output.Matches, 1)
	assert.Equal(t, "r-far", output.Matches[0].RestaurantID)
}

func TestExecute_CapacityConservation(t *testing.T) {
	handler, _ := newHandler(t, createTestConfig())

	profiles := make([]models.GroupProfile, 3)
	for i, id := range []string{"group-001", "group-002", "group-003"} {
		profiles[i] = testProfile(id, 0, nil)
	}

	input := &Input{
		GroupProfiles: profiles,
		Restaurants:   []models.Restaurant{testRestaurant("r-only", 0, nil, 2)},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Len(t, output.Matches, 2)
	assert.Len(t, output.UnmatchedGroups, 1)
}

func TestExecute_EmptyProfilesRejected(t *testing.T) {
	handler, _ := newHandler(t, createTestConfig())

	output, err := handler.Execute(context.Background(), &Input{})

	assert.Error(t, err)
	assert.Nil(t, output)
}

func TestExecute_PersistsMatches(t *testing.T) {
	cfg := createTestConfig()
	cfg.PersistMatches = true
	handler, dbMock := newHandler(t, cfg)

	dbMock.ExpectBegin()
	dbMock.ExpectExec("INSERT INTO dining_matches").
		WithArgs("group-001", "r-italian", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	dbMock.ExpectCommit()

	input := &Input{
		GroupProfiles: []models.GroupProfile{testProfile("group-001", 0, nil)},
		Restaurants:   []models.Restaurant{testRestaurant("r-italian", 0, nil, 2)},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Len(t, output.Matches, 1)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestExecute_PersistFailureRollsBack(t *testing.T) {
	cfg := createTestConfig()
	cfg.PersistMatches = true
	handler, dbMock := newHandler(t, cfg)

	dbMock.ExpectBegin()
	dbMock.ExpectExec("INSERT INTO dining_matches").
		WillReturnError(assert.AnError)
	dbMock.ExpectRollback()

	input := &Input{
		GroupProfiles: []models.GroupProfile{testProfile("group-001", 0, nil)},
		Restaurants:   []models.Restaurant{testRestaurant("r-italian", 0, nil, 2)},
	}

	output, err := handler.Execute(context.Background(), input)

	assert.ErrorIs(t, err, ErrMatchPersistFailed)
	assert.Nil(t, output)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestInputSchema(t *testing.T) {
	validInput := map[string]interface{}{
		"groupProfiles": []interface{}{
			map[string]interface{}{
				"groupId":                    "group-001",
				"aggregatedPreferenceVector": []interface{}{0.5, 0.5},
				"memberCount":                4,
				"location":                   map[string]interface{}{"lat": 37.7, "lng": -122.4},
			},
		},
	}

	tests := []struct {
		name    string
		mutate  func(doc map[string]interface{})
		wantErr bool
	}{
		{
			name:   "valid document",
			mutate: func(doc map[string]interface{}) {},
		},
		{
			name: "missing group profiles",
			mutate: func(doc map[string]interface{}) {
				delete(doc, "groupProfiles")
			},
			wantErr: true,
		},
		{
			name: "empty group profiles",
			mutate: func(doc map[string]interface{}) {
				doc["groupProfiles"] = []interface{}{}
			},
			wantErr: true,
		},
		{
			name: "negative distance",
			mutate: func(doc map[string]interface{}) {
				doc["maxDistanceKm"] = -1.0
			},
			wantErr: true,
		},
		{
			name: "latitude out of range",
			mutate: func(doc map[string]interface{}) {
				profile := doc["groupProfiles"].([]interface{})[0].(map[string]interface{})
				profile["location"] = map[string]interface{}{"lat": 123.0, "lng": 0.0}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(validInput)
			require.NoError(t, err)
			var doc map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &doc))

			tt.mutate(doc)
			result := validation.ValidateDocument(doc, inputSchema)
			assert.Equal(t, !tt.wantErr, result.Valid, "errors: %v", result.GetErrorMessages())
		})
	}
}
