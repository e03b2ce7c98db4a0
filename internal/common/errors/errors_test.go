// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewValidationError("weights must sum to 1.0", "got 0.7")

	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "VALIDATION_FAILED", bpmnErr.Code)
	assert.Equal(t, "weights must sum to 1.0", bpmnErr.Message)
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.Contains(t, bpmnErr.ErrorVariables, "failedAt")
}

func TestConvertToBPMNError_RetryableInfrastructure(t *testing.T) {
	stdErr := NewExternalServiceError("elasticsearch", fmt.Errorf("connection refused"))

	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", bpmnErr.Code)
	assert.True(t, bpmnErr.Retryable)
	assert.Equal(t, 3, bpmnErr.Retries)
}

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		retries int
	}{
		{ErrCodeValidationFailed, 0},
		{ErrCodeDimensionMismatch, 0},
		{ErrCodeDegenerateInput, 0},
		{ErrCodeRosterTooSmall, 0},
		{ErrCodeRosterFetchFailed, 3},
		{ErrCodeCatalogFetchFailed, 3},
		{ErrCodeMatchPersistFailed, 3},
		{ErrCodeEmbeddingLoadFailed, 3},
		{ErrCodeTimeout, 3},
		{ErrCodeExternalService, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retries, GetRetryCount(tt.code))
		})
	}
}

func TestToErrorVariables(t *testing.T) {
	bpmnErr := &BPMNError{
		Code:      "ROSTER_TOO_SMALL",
		Message:   "Roster of 7 is below the minimum of 12",
		Retryable: false,
		ErrorVariables: map[string]interface{}{
			"rosterSize": 7,
		},
	}

	vars := bpmnErr.ToErrorVariables()

	assert.Equal(t, "ROSTER_TOO_SMALL", vars["errorCode"])
	assert.Equal(t, false, vars["retryable"])
	assert.Equal(t, 7, vars["rosterSize"])
}

func TestNewRosterTooSmallError(t *testing.T) {
	stdErr := NewRosterTooSmallError(7, 12)

	assert.Equal(t, ErrCodeRosterTooSmall, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, 7, stdErr.Metadata["rosterSize"])
	assert.Equal(t, 12, stdErr.Metadata["minimum"])
}

type captureLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *captureLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

func TestNormalizeError_PassesThroughStandardError(t *testing.T) {
	h := NewErrorHandler(&captureLogger{})

	stdErr := NewDegenerateInputError("user-42 vector has zero norm")
	normalized := h.normalizeError(stdErr)

	assert.Same(t, stdErr, normalized)
}

func TestNormalizeError_WrapsPlainError(t *testing.T) {
	h := NewErrorHandler(&captureLogger{})

	normalized := h.normalizeError(fmt.Errorf("something broke"))

	require.NotNil(t, normalized)
	assert.Equal(t, ErrCodeInternal, normalized.Code)
	assert.Equal(t, "something broke", normalized.Details)
	assert.False(t, normalized.Retryable)
}
