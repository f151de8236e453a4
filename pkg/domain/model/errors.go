package model

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Sentinel errors for domain operations
var (
	ErrIntegrationNotFound = goerr.New("integration not found")
	ErrAttemptNotFound     = goerr.New("provisioning attempt not found")
	ErrAttemptExpired      = goerr.New("provisioning attempt expired")
	ErrIntegrationDisabled = goerr.New("mattermost integration is not enabled")
	ErrTokenMismatch       = goerr.New("token mismatch")
)

// UpstreamError is any failure talking to the chat platform: transport errors,
// non-success status codes and malformed or error-carrying payloads alike.
// Message is shown to the user verbatim.
type UpstreamError struct {
	Op      string
	Message string
	Status  int
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates an UpstreamError for the operation
func NewUpstreamError(op, message string, status int) *UpstreamError {
	return &UpstreamError{Op: op, Message: message, Status: status}
}

// WithCause sets the underlying error
func (e *UpstreamError) WithCause(err error) *UpstreamError {
	e.Err = err
	return e
}

// AsUpstreamError extracts an UpstreamError from the error chain
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}

// ValidationError reports invalid user input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError for the field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError extracts a ValidationError from the error chain
func AsValidationError(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
