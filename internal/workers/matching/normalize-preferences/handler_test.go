// internal/workers/matching/normalize-preferences/handler_test.go
package normalizepreferences

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"matching-workers/internal/common/logger"
	"matching-workers/internal/matching/vector"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{
		DefaultWeights: []float64{0.5, 0.3, 0.2},
		CacheTTL:       time.Hour,
		Timeout:        10 * time.Second,
	}
}

// basis returns a unit vector with a single nonzero component.
func basis(i int) []float64 {
	v := make([]float64, vector.Dim)
	v[i] = 1.0
	return v
}

func constantVector(val float64) []float64 {
	v := make([]float64, vector.Dim)
	for i := range v {
		v[i] = val
	}
	return v
}

func newHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, redismock.ClientMock) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, redisMock := redismock.NewClientMock()
	return NewHandler(createTestConfig(), db, rdb, logger.NewTestLogger(t)), dbMock, redisMock
}

func TestExecute_SingleUser_InlineEmbeddings(t *testing.T) {
	handler, _, redisMock := newHandler(t)
	redisMock.Regexp().ExpectSet("pref:vector:user-1", `.*`, time.Hour).SetVal("OK")

	input := &Input{
		UserID:     "user-1",
		Embeddings: [][]float64{basis(0), basis(1), basis(2)},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "user-1", output.UserID)
	assert.Len(t, output.PreferenceVector, vector.Dim)

	norm := 0.0
	for _, x := range output.PreferenceVector {
		norm += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)

	// Default weights order the components 0.5 > 0.3 > 0.2.
	assert.Greater(t, output.PreferenceVector[0], output.PreferenceVector[1])
	assert.Greater(t, output.PreferenceVector[1], output.PreferenceVector[2])
}

func TestExecute_SingleUser_FetchesEmbeddingsFromStore(t *testing.T) {
	handler, dbMock, redisMock := newHandler(t)

	dining, _ := json.Marshal(basis(0))
	cuisine, _ := json.Marshal(basis(1))
	social, _ := json.Marshal(basis(2))

	dbMock.ExpectQuery("SELECT dining_embedding, cuisine_embedding, social_embedding").
		WithArgs("user-7").
		WillReturnRows(sqlmock.NewRows([]string{"dining_embedding", "cuisine_embedding", "social_embedding"}).
			AddRow(dining, cuisine, social))

	redisMock.Regexp().ExpectSet("pref:vector:user-7", `.*`, time.Hour).SetVal("OK")

	output, err := handler.Execute(context.Background(), &Input{UserID: "user-7"})

	require.NoError(t, err)
	assert.Equal(t, "user-7", output.UserID)
	assert.Len(t, output.PreferenceVector, vector.Dim)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestExecute_SingleUser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{
			name:  "empty request",
			input: &Input{},
		},
		{
			name: "wrong embedding count",
			input: &Input{
				UserID:     "user-1",
				Embeddings: [][]float64{basis(0), basis(1)},
			},
		},
		{
			name: "wrong dimension",
			input: &Input{
				UserID:     "user-1",
				Embeddings: [][]float64{{1, 0}, {0, 1}, {1, 1}},
			},
		},
		{
			name: "weights do not sum to one",
			input: &Input{
				UserID:     "user-1",
				Embeddings: [][]float64{basis(0), basis(1), basis(2)},
				Weights:    []float64{0.5, 0.5, 0.5},
			},
		},
		{
			name: "all-zero embeddings",
			input: &Input{
				UserID:     "user-1",
				Embeddings: [][]float64{constantVector(0), constantVector(0), constantVector(0)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := newHandler(t)
			output, err := handler.Execute(context.Background(), tt.input)
			assert.Error(t, err)
			assert.Nil(t, output)
		})
	}
}

func TestExecute_Batch_PartialFailure(t *testing.T) {
	handler, _, redisMock := newHandler(t)
	redisMock.Regexp().ExpectSet("pref:vector:user-a", `.*`, time.Hour).SetVal("OK")
	redisMock.Regexp().ExpectSet("pref:vector:user-c", `.*`, time.Hour).SetVal("OK")

	input := &Input{
		Users: []UserInput{
			{UserID: "user-a", Embeddings: [][]float64{basis(0), basis(1), basis(2)}},
			{UserID: "user-b", Embeddings: [][]float64{constantVector(0), constantVector(0), constantVector(0)}},
			{UserID: "user-c", Embeddings: [][]float64{basis(3), basis(4), basis(5)}},
		},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	require.Len(t, output.Results, 2)
	assert.Equal(t, "user-a", output.Results[0].UserID)
	assert.Equal(t, "user-c", output.Results[1].UserID)

	require.Len(t, output.FailedUsers, 1)
	assert.Equal(t, "user-b", output.FailedUsers[0].UserID)
	assert.Equal(t, "DEGENERATE_INPUT", output.FailedUsers[0].Code)
}

func TestExecute_Batch_StoreFailureIsPerUser(t *testing.T) {
	handler, dbMock, redisMock := newHandler(t)

	dbMock.ExpectQuery("SELECT dining_embedding, cuisine_embedding, social_embedding").
		WithArgs("user-missing").
		WillReturnError(context.DeadlineExceeded)

	redisMock.Regexp().ExpectSet("pref:vector:user-ok", `.*`, time.Hour).SetVal("OK")

	input := &Input{
		Users: []UserInput{
			{UserID: "user-missing"},
			{UserID: "user-ok", Embeddings: [][]float64{basis(0), basis(1), basis(2)}},
		},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Len(t, output.Results, 1)
	require.Len(t, output.FailedUsers, 1)
	assert.Equal(t, "user-missing", output.FailedUsers[0].UserID)
}

func TestExecute_CustomWeights(t *testing.T) {
	handler, _, redisMock := newHandler(t)
	redisMock.Regexp().ExpectSet("pref:vector:user-1", `.*`, time.Hour).SetVal("OK")

	input := &Input{
		UserID:     "user-1",
		Embeddings: [][]float64{basis(0), basis(1), basis(2)},
		Weights:    []float64{1.0, 0.0, 0.0},
	}

	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.InDelta(t, 1.0, output.PreferenceVector[0], 1e-9)
	assert.InDelta(t, 0.0, output.PreferenceVector[1], 1e-9)
}
