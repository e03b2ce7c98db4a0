// Package errors provides standardized error handling for the matching
// pipeline and its BPMN workflow integration.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Request-shape and precondition failures; rejected before any
	// computation, never partially applied.
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	ErrCodeRosterTooSmall    ErrorCode = "ROSTER_TOO_SMALL"
	ErrCodeInvalidWeights    ErrorCode = "INVALID_WEIGHTS"

	// A zero-norm vector that cannot be normalized. Batch siblings keep
	// going; the offending item gets its own failure record.
	ErrCodeDegenerateInput ErrorCode = "DEGENERATE_INPUT"

	// Internal bookkeeping when a restaurant runs out of tables during
	// assignment. Removes the restaurant from later candidate pools;
	// never fatal, never user-visible.
	ErrCodeCapacityExhausted ErrorCode = "CAPACITY_EXHAUSTED"

	// Infrastructure failures from the worker layer.
	ErrCodeRosterFetchFailed   ErrorCode = "ROSTER_FETCH_FAILED"
	ErrCodeCatalogFetchFailed  ErrorCode = "CATALOG_FETCH_FAILED"
	ErrCodeMatchPersistFailed  ErrorCode = "MATCH_PERSIST_FAILED"
	ErrCodeEmbeddingLoadFailed ErrorCode = "EMBEDDING_LOAD_FAILED"
	ErrCodeInputParsingFailed  ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
	ErrCodeTimeout             ErrorCode = "TIMEOUT"
	ErrCodeExternalService     ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewValidationError creates a non-retryable request-shape error.
func NewValidationError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDegenerateInputError flags a zero-norm vector.
func NewDegenerateInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDegenerateInput,
		Message:   "Vector has zero norm and cannot be normalized",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRosterTooSmallError rejects a roster below the hard minimum.
func NewRosterTooSmallError(got, minimum int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRosterTooSmall,
		Message:   fmt.Sprintf("Roster of %d is below the minimum of %d", got, minimum),
		Retryable: false,
		Metadata:  map[string]interface{}{"rosterSize": got, "minimum": minimum},
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError wraps a failure of a downstream dependency.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service %s failed", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError wraps a deadline hit against a downstream dependency.
func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Operation against %s timed out", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// BPMNError represents an error thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ConvertToBPMNError maps a StandardError onto the workflow error shape.
func ConvertToBPMNError(err *StandardError) *BPMNError {
	return &BPMNError{
		Code:      string(err.Code),
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		Retries:   GetRetryCount(err.Code),
		ErrorVariables: map[string]interface{}{
			"failedAt": err.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetRetryCount returns how many retries a code deserves. Validation and
// degenerate-input failures are deterministic and never retried; only
// infrastructure failures are.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRosterFetchFailed,
		ErrCodeCatalogFetchFailed,
		ErrCodeMatchPersistFailed,
		ErrCodeEmbeddingLoadFailed,
		ErrCodeTimeout,
		ErrCodeExternalService:
		return 3
	default:
		return 0
	}
}
