package domain

import (
	"errors"
	"fmt"
	"time"
)

// ServiceError is the error every outer surface renders to its caller.
type ServiceError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	Err error `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error codes for different failure scenarios
const (
	CodeModelUnavailable = "MODEL_UNAVAILABLE"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeStorage          = "STORAGE_ERROR"
	CodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	CodeNotFound         = "NOT_FOUND"
)

var (
	ErrArtifactUnavailable = errors.New("scoring artifact unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewServiceError creates a new ServiceError with timestamp
func NewServiceError(code, message, details, requestID string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ModelUnavailable wraps a missing or corrupt artifact failure.
func ModelUnavailable(err error) *ServiceError {
	se := NewServiceError(CodeModelUnavailable, "risk model is unavailable", errString(err), "")
	se.Err = errors.Join(ErrArtifactUnavailable, err)
	return se
}

// InvalidInput wraps a profile validation failure.
func InvalidInput(err error) *ServiceError {
	se := NewServiceError(CodeInvalidInput, "patient profile is invalid", errString(err), "")
	se.Err = errors.Join(ErrInvalidInput, err)
	return se
}

// Internal wraps any failure not covered by a more specific code.
func Internal(err error) *ServiceError {
	se := NewServiceError(CodeInternal, "internal error", errString(err), "")
	se.Err = err
	return se
}

// Storage wraps an outcome store failure.
func Storage(err error) *ServiceError {
	if errors.Is(err, ErrNotFound) {
		se := NewServiceError(CodeNotFound, "record not found", errString(err), "")
		se.Err = err
		return se
	}
	se := NewServiceError(CodeStorage, "storage failure", errString(err), "")
	se.Err = err
	return se
}

// ErrorCode classifies any error into one of the service error codes.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case errors.Is(err, ErrArtifactUnavailable):
		return CodeModelUnavailable
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
