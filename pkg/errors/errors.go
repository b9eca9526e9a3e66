package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates a failure reported by an external API
	ErrExternal = errors.New("external service error")
)

// Pipeline errors

var (
	// ErrProviderUnavailable indicates a data, search or LLM provider call
	// failed or returned nothing usable. The subtask result is omitted and
	// the pipeline continues.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrEmptyResponse indicates an agent invocation returned no text
	ErrEmptyResponse = errors.New("empty agent response")

	// ErrPipelineFault indicates an uncaught failure inside a research run
	ErrPipelineFault = errors.New("pipeline fault")
)

// Publication errors

var (
	// ErrPublicationFailed indicates the report artifact could not be published
	ErrPublicationFailed = errors.New("publication failed")

	// ErrArtifactMissing indicates the local report file was not found
	ErrArtifactMissing = errors.New("artifact file not found")

	// ErrNoCredentials indicates storage credentials are not available
	ErrNoCredentials = errors.New("storage credentials not available")
)

// AI provider errors

var (
	// ErrRateLimitExceeded indicates API rate limit exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrModelNotFound indicates the requested model is not registered
	ErrModelNotFound = errors.New("model not found")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message, preserving the chain
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf annotates err with a formatted message, preserving the chain
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// New creates a new error from a message
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new error from a format string
func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
