// internal/workers/matching/match-groups/handler_test.go
package matchgroups

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"matching-workers/internal/common/logger"
	"matching-workers/internal/common/observability"
	"matching-workers/internal/matching/grouper"
	"matching-workers/internal/matching/vector"
	"matching-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{Timeout: 10 * time.Second}
}

// clusterVector builds a unit-length vector near the given axis, with a
// small salt-dependent perturbation so cluster members are similar but not
// identical.
func clusterVector(axis, salt int) []float64 {
	v := make([]float64, vector.Dim)
	v[axis] = 1.0
	v[(axis+1+salt)%vector.Dim] = 0.05 * float64(salt+1)
	out, _ := vector.Normalize(v)
	return out
}

func testParticipant(id string, axis, salt int) models.Participant {
	return models.Participant{
		ID:               id,
		Name:             "Participant " + id,
		BudgetTier:       models.BudgetMedium,
		Location:         models.Location{Lat: 37.77, Lng: -122.42},
		PreferenceVector: clusterVector(axis, salt),
	}
}

func testRoster(n int) []models.Participant {
	roster := make([]models.Participant, n)
	for i := 0; i < n; i++ {
		roster[i] = testParticipant(fmt.Sprintf("user-%02d", i), (i/4)*10, i%4)
	}
	return roster
}

func newHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, redismock.ClientMock) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, redisMock := redismock.NewClientMock()
	h := NewHandler(createTestConfig(), db, rdb, logger.NewTestLogger(t))
	h.idGen = grouper.SequentialIDs
	return h, dbMock, redisMock
}

func TestExecute_InlineRoster(t *testing.T) {
	handler, _, _ := newHandler(t)

	output, err := handler.Execute(context.Background(), &Input{Participants: testRoster(12)})

	require.NoError(t, err)
	assert.Equal(t, 3, output.TotalGroups)
	assert.Empty(t, output.UnmatchedUsers)

	total := 0
	for _, g := range output.Groups {
		size := g.Size()
		assert.GreaterOrEqual(t, size, grouper.MinGroupSize)
		assert.LessOrEqual(t, size, grouper.MaxGroupSize)
		assert.GreaterOrEqual(t, g.CompatibilityScore, 0.0)
		assert.LessOrEqual(t, g.CompatibilityScore, 1.0)
		total += size
	}
	assert.Equal(t, 12, total)
}

func TestExecute_RosterTooSmall(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{name: "empty request", input: &Input{}},
		{name: "eleven participants", input: &Input{Participants: testRoster(11)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := newHandler(t)
			output, err := handler.Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, grouper.ErrRosterTooSmall)
			assert.Nil(t, output)
		})
	}
}

func TestExecute_FetchesRosterForEvent(t *testing.T) {
	handler, dbMock, redisMock := newHandler(t)

	roster := testRoster(12)
	restrictions, _ := json.Marshal([]string{"vegetarian"})

	rows := sqlmock.NewRows([]string{"id", "name", "dietary_restrictions", "budget_tier", "lat", "lng"})
	for _, p := range roster {
		rows.AddRow(p.ID, p.Name, restrictions, string(p.BudgetTier), p.Location.Lat, p.Location.Lng)
	}
	dbMock.ExpectQuery("SELECT u.id, u.name, u.dietary_restrictions").
		WithArgs("event-42").
		WillReturnRows(rows)

	for _, p := range roster {
		cached, _ := json.Marshal(p.PreferenceVector)
		redisMock.ExpectGet("pref:vector:" + p.ID).SetVal(string(cached))
	}

	output, err := handler.Execute(context.Background(), &Input{EventID: "event-42"})

	require.NoError(t, err)
	assert.Equal(t, 3, output.TotalGroups)
	assert.Empty(t, output.UnmatchedUsers)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestExecute_CacheMissFallsBackToVectorStore(t *testing.T) {
	handler, dbMock, redisMock := newHandler(t)

	roster := testRoster(12)
	restrictions, _ := json.Marshal([]string{})

	rows := sqlmock.NewRows([]string{"id", "name", "dietary_restrictions", "budget_tier", "lat", "lng"})
	for _, p := range roster {
		rows.AddRow(p.ID, p.Name, restrictions, string(p.BudgetTier), p.Location.Lat, p.Location.Lng)
	}
	dbMock.ExpectQuery("SELECT u.id, u.name, u.dietary_restrictions").
		WithArgs("event-43").
		WillReturnRows(rows)

	for _, p := range roster {
		redisMock.ExpectGet("pref:vector:" + p.ID).RedisNil()
		stored, _ := json.Marshal(p.PreferenceVector)
		dbMock.ExpectQuery("SELECT vector FROM preference_vectors").
			WithArgs(p.ID).
			WillReturnRows(sqlmock.NewRows([]string{"vector"}).AddRow(stored))
	}

	output, err := handler.Execute(context.Background(), &Input{EventID: "event-43"})

	require.NoError(t, err)
	assert.Equal(t, 3, output.TotalGroups)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestExecute_MissingVectorsLeaveParticipantsUnmatched(t *testing.T) {
	handler, _, _ := newHandler(t)

	// 14 participants, two with no usable vector.
	roster := testRoster(14)
	roster[12].PreferenceVector = nil
	roster[13].PreferenceVector = make([]float64, vector.Dim)

	output, err := handler.Execute(context.Background(), &Input{Participants: roster})

	require.NoError(t, err)
	assert.Equal(t, 3, output.TotalGroups)
	assert.ElementsMatch(t, []string{"user-12", "user-13"}, output.UnmatchedUsers)
}

func TestExecute_RecordsGroupSizes(t *testing.T) {
	handler, _, _ := newHandler(t)

	obs := observability.New("match-groups-test")
	t.Cleanup(obs.Shutdown)
	handler.WithObservability(obs)

	output, err := handler.Execute(context.Background(), &Input{Participants: testRoster(13)})
	require.NoError(t, err)
	require.Equal(t, 3, output.TotalGroups)

	// The exporter publishes through the default registry; one histogram
	// sample per formed group.
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var hist *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "groups_size" {
			hist = mf
		}
	}
	require.NotNil(t, hist, "groups_size histogram not exported")

	var samples uint64
	for _, m := range hist.Metric {
		samples += m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(3), samples)
}

func TestExecute_GroupIDsAreUnique(t *testing.T) {
	handler, _, _ := newHandler(t)

	output, err := handler.Execute(context.Background(), &Input{Participants: testRoster(20)})

	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, g := range output.Groups {
		assert.False(t, seen[g.GroupID], "duplicate group id %s", g.GroupID)
		seen[g.GroupID] = true
	}
}
