// internal/workers/matching/match-restaurants/schema.go
package matchrestaurants

// inputSchema guards the request shape before any matching runs. The vector
// dimension itself is checked downstream where it is cheaper to report per
// group.
const inputSchema = `{
	"type": "object",
	"required": ["groupProfiles"],
	"properties": {
		"groupProfiles": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["groupId", "aggregatedPreferenceVector"],
				"properties": {
					"groupId": {"type": "string", "minLength": 1},
					"aggregatedPreferenceVector": {
						"type": "array",
						"items": {"type": "number"}
					},
					"dietaryRestrictions": {
						"type": "array",
						"items": {"type": "string"}
					},
					"budgetRange": {
						"type": "object",
						"properties": {
							"min": {"type": "number"},
							"max": {"type": "number"}
						}
					},
					"memberCount": {"type": "integer", "minimum": 1},
					"location": {
						"type": "object",
						"properties": {
							"lat": {"type": "number", "minimum": -90, "maximum": 90},
							"lng": {"type": "number", "minimum": -180, "maximum": 180}
						}
					}
				}
			}
		},
		"restaurants": {"type": "array"},
		"maxDistanceKm": {"type": "number", "minimum": 0}
	}
}`
