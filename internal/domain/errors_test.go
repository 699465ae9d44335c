package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServiceError(t *testing.T) {
	err := NewServiceError(CodeInvalidInput, "patient profile is invalid", "age out of range", "req-123")

	assert.Equal(t, CodeInvalidInput, err.Code)
	assert.Equal(t, "req-123", err.RequestID)
	assert.Equal(t, "INVALID_INPUT: patient profile is invalid", err.Error())
	assert.WithinDuration(t, time.Now().UTC(), err.Timestamp, time.Second)
}

func TestValidationErrorMatchesInvalidInput(t *testing.T) {
	err := NewValidationError("age", "must be between 15 and 49", 12)

	assert.Equal(t, "validation error for field 'age': must be between 15 and 49", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrArtifactUnavailable))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"model unavailable", ModelUnavailable(errors.New("open model.json: no such file")), CodeModelUnavailable},
		{"wrapped artifact sentinel", fmt.Errorf("load: %w", ErrArtifactUnavailable), CodeModelUnavailable},
		{"invalid input", InvalidInput(NewValidationError("age", "bad", 3)), CodeInvalidInput},
		{"bare validation error", NewValidationError("parity", "bad", 99), CodeInvalidInput},
		{"not found", fmt.Errorf("outcome 7: %w", ErrNotFound), CodeNotFound},
		{"storage not found", Storage(ErrNotFound), CodeNotFound},
		{"storage", Storage(errors.New("disk full")), CodeStorage},
		{"other", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ErrorCode(tt.err))
		})
	}
}

func TestModelUnavailableUnwraps(t *testing.T) {
	cause := errors.New("checksum mismatch")
	err := ModelUnavailable(cause)

	assert.ErrorIs(t, err, ErrArtifactUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "checksum mismatch", err.Details)
}
