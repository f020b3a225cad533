package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicate     = errors.New("duplicate record")
	ErrUnknownSource = errors.New("unknown source")
	ErrCycleInFlight = errors.New("cycle already in flight")
	ErrTimeout       = errors.New("operation timeout")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error `json:"errors"`
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// Add adds an error to the MultiError
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// DatabaseError represents a database-related error
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error {
	return e.Err
}

// FetchError is returned when an upstream feed cannot be retrieved or decoded.
type FetchError struct {
	Source string
	Err    error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e FetchError) Unwrap() error {
	return e.Err
}

// DeliveryError wraps a push delivery failure for a single device token.
type DeliveryError struct {
	Token string
	Err   error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", maskToken(e.Token), e.Err)
}

func (e DeliveryError) Unwrap() error {
	return e.Err
}

// maskToken keeps device tokens out of logs beyond a short prefix.
func maskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
