// internal/workers/matching/normalize-preferences/models.go
package normalizepreferences

// Input carries either one user's raw embeddings inline, a bare userId whose
// embeddings are fetched from storage, or a batch under users.
type Input struct {
	UserID     string      `json:"userId,omitempty"`
	Embeddings [][]float64 `json:"embeddings,omitempty"`
	Weights    []float64   `json:"weights,omitempty"`
	Users      []UserInput `json:"users,omitempty"`
}

// UserInput is one entry of a batch request.
type UserInput struct {
	UserID     string      `json:"userId"`
	Embeddings [][]float64 `json:"embeddings,omitempty"`
	Weights    []float64   `json:"weights,omitempty"`
}

type Output struct {
	UserID           string       `json:"userId,omitempty"`
	PreferenceVector []float64    `json:"preferenceVector,omitempty"`
	ProcessingTimeMs float64      `json:"processingTimeMs,omitempty"`
	Results          []UserResult `json:"results,omitempty"`
	FailedUsers      []UserError  `json:"failedUsers,omitempty"`
}

// UserResult is one successful batch entry.
type UserResult struct {
	UserID           string    `json:"userId"`
	PreferenceVector []float64 `json:"preferenceVector"`
	ProcessingTimeMs float64   `json:"processingTimeMs"`
}

// UserError is one failed batch entry. Failures never abort siblings.
type UserError struct {
	UserID  string `json:"userId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
