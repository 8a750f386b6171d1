// Package errors defines the structured error codes the generation
// pipeline and API handlers share.
package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for generation operations.
type ErrorCode string

const (
	// ErrCodeRateLimitExceeded indicates the client exhausted its request budget.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidQuery indicates an empty or malformed query.
	ErrCodeInvalidQuery ErrorCode = "INVALID_QUERY"
	// ErrCodeSlideGenerationFailed indicates a single slide could not be generated.
	ErrCodeSlideGenerationFailed ErrorCode = "SLIDE_GENERATION_FAILED"
	// ErrCodePipelineFailed indicates the whole generation request failed.
	ErrCodePipelineFailed ErrorCode = "PIPELINE_FAILED"
	// ErrCodeEngagementFailed indicates engagement content could not be generated.
	ErrCodeEngagementFailed ErrorCode = "ENGAGEMENT_FAILED"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
)

// GenerationError represents a structured error for generation operations.
type GenerationError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// SlideGenerationFailed creates a per-slide generation failure error.
func SlideGenerationFailed(msg string, cause error) *GenerationError {
	return &GenerationError{Code: ErrCodeSlideGenerationFailed, Message: msg, Cause: cause}
}

// PipelineFailed creates a fatal pipeline failure error.
func PipelineFailed(msg string, cause error) *GenerationError {
	return &GenerationError{Code: ErrCodePipelineFailed, Message: msg, Cause: cause}
}

// ContextCanceled creates a canceled error.
func ContextCanceled(cause error) *GenerationError {
	return &GenerationError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if genErr, ok := err.(*GenerationError); ok {
		return genErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a GenerationError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if genErr, ok := err.(*GenerationError); ok {
		return genErr.Code
	}
	return defaultCode
}
