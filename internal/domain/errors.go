package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidSubmissionSource   = NewDomainError(ErrCodeValidation, "invalid submission source")
	ErrInvalidSubmissionStatus   = NewDomainError(ErrCodeValidation, "invalid submission status")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
	ErrUnsupportedDocumentFormat = NewDomainError(ErrCodeValidation, "unsupported document format")
)

// Not found errors
var (
	ErrEntryNotFound        = NewDomainError(ErrCodeNotFound, "knowledge entry not found")
	ErrSubmissionNotFound   = NewDomainError(ErrCodeNotFound, "submission not found")
	ErrDocumentNotFound     = NewDomainError(ErrCodeNotFound, "document not found")
	ErrOrganizationNotFound = NewDomainError(ErrCodeNotFound, "organization not found")
	ErrAPIKeyNotFound       = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	// ErrSimilarEntryExists rejects adds whose question is a near-duplicate
	// of an existing entry (exact match or similarity >= 0.8).
	ErrSimilarEntryExists        = NewDomainError(ErrCodeAlreadyExists, "similar question already exists in knowledge base")
	ErrOrganizationAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "organization already exists")
	ErrAPIKeyAlreadyExists       = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Operation errors
var (
	ErrSubmissionNotCompleted = NewDomainError(ErrCodeInvalidOperation, "submission has not completed processing")
	ErrEntryInactive          = NewDomainError(ErrCodeInvalidOperation, "knowledge entry is inactive")
)
