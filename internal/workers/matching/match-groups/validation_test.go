// internal/workers/matching/match-groups/validation_test.go
package matchgroups

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-workers/internal/matching/vector"
)

func rawParticipant(id string, vecLen int) map[string]interface{} {
	p := map[string]interface{}{
		"id":   id,
		"name": "Participant " + id,
	}
	if vecLen > 0 {
		vec := make([]interface{}, vecLen)
		for i := range vec {
			vec[i] = 0.0
		}
		vec[0] = 1.0
		p["preferenceVector"] = vec
	}
	return p
}

func TestValidateJobInput_Valid(t *testing.T) {
	result := validateJobInput(map[string]interface{}{
		"eventId": "event-1",
		"participants": []interface{}{
			rawParticipant("user-0", vector.Dim),
			rawParticipant("user-1", vector.Dim),
		},
		"someUpstreamVariable": true,
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateJobInput_MissingVectorTolerated(t *testing.T) {
	result := validateJobInput(map[string]interface{}{
		"participants": []interface{}{
			rawParticipant("user-0", 0),
		},
	})

	assert.True(t, result.Valid)
}

func TestValidateJobInput_WrongVectorLength(t *testing.T) {
	result := validateJobInput(map[string]interface{}{
		"participants": []interface{}{
			rawParticipant("user-0", vector.Dim),
			rawParticipant("user-1", 10),
		},
	})

	require.False(t, result.Valid)
	assert.True(t, result.HasErrors("participants[1].preferenceVector"))
	assert.Empty(t, result.GetErrorsForField("participants[0].preferenceVector"))
}

func TestValidateJobInput_WrongTypes(t *testing.T) {
	result := validateJobInput(map[string]interface{}{
		"eventId":      42,
		"participants": "not-an-array",
	})

	require.False(t, result.Valid)
	assert.True(t, result.HasErrors("eventId"))
	assert.True(t, result.HasErrors("participants"))
}
