// internal/workers/matching/match-groups/validation.go
package matchgroups

import (
	"fmt"

	"matching-workers/internal/common/validation"
	"matching-workers/internal/matching/vector"
)

var inputSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"eventId":      {Type: "string"},
		"participants": {Type: "array"},
	},
	AdditionalProperties: true,
}

// validateJobInput checks the raw job payload before it is decoded into the
// typed input. A participant vector, when present, must already have the
// full embedding length; missing vectors are legal and handled downstream.
func validateJobInput(variables map[string]interface{}) *validation.ValidationResult {
	result := validation.ValidateInput(variables, inputSchema)

	participants, ok := variables["participants"].([]interface{})
	if !ok {
		return result
	}
	for i, raw := range participants {
		p, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		vec, ok := p["preferenceVector"].([]interface{})
		if !ok || len(vec) == 0 {
			continue
		}
		field := fmt.Sprintf("participants[%d].preferenceVector", i)
		result.Errors = append(result.Errors, validation.ValidateVectorDim(field, vec, vector.Dim)...)
	}
	result.Valid = len(result.Errors) == 0
	return result
}
