package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "token",
		Message: "required",
	}

	expected := "validation error on field 'token': required"
	if err.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, err.Error())
	}
}

func TestMultiError_Error(t *testing.T) {
	tests := []struct {
		name     string
		errors   []error
		expected string
	}{
		{
			name:     "No errors",
			errors:   []error{},
			expected: "no errors",
		},
		{
			name:     "Single error",
			errors:   []error{errors.New("first error")},
			expected: "first error",
		},
		{
			name:     "Multiple errors",
			errors:   []error{errors.New("first error"), errors.New("second error"), errors.New("third")},
			expected: "first error (and 2 more errors)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multiErr := MultiError{Errors: tt.errors}
			if multiErr.Error() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, multiErr.Error())
			}
		})
	}
}

func TestMultiError_Add(t *testing.T) {
	var multiErr MultiError
	multiErr.Add(nil)
	if multiErr.HasErrors() {
		t.Error("Expected nil error to be ignored")
	}
	multiErr.Add(errors.New("boom"))
	if !multiErr.HasErrors() {
		t.Error("Expected errors after Add")
	}
}

func TestDatabaseError(t *testing.T) {
	originalErr := errors.New("connection failed")
	dbErr := DatabaseError{
		Operation: "query",
		Err:       originalErr,
	}

	expected := "database error during query: connection failed"
	if dbErr.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, dbErr.Error())
	}
	if dbErr.Unwrap() != originalErr {
		t.Error("Expected Unwrap to return original error")
	}
}

func TestFetchError(t *testing.T) {
	err := fmt.Errorf("cycle: %w", FetchError{Source: "AFAD", Err: ErrTimeout})

	var fe FetchError
	if !errors.As(err, &fe) {
		t.Fatal("Expected errors.As to find FetchError")
	}
	if fe.Source != "AFAD" {
		t.Errorf("Expected source AFAD, got %s", fe.Source)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("Expected wrapped ErrTimeout")
	}
}

func TestDeliveryError_MasksToken(t *testing.T) {
	err := DeliveryError{Token: "abcdefghijklmnop", Err: errors.New("unregistered")}
	expected := "delivery to abcdefgh... failed: unregistered"
	if err.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, err.Error())
	}

	short := DeliveryError{Token: "abc", Err: errors.New("x")}
	if short.Error() != "delivery to abc failed: x" {
		t.Errorf("Unexpected message %s", short.Error())
	}
}

func TestErrorConstants(t *testing.T) {
	errorConstants := []error{
		ErrInvalidInput,
		ErrDuplicate,
		ErrUnknownSource,
		ErrCycleInFlight,
		ErrTimeout,
	}

	for i, err := range errorConstants {
		if err == nil {
			t.Errorf("Error constant at index %d is nil", i)
		}
		if err.Error() == "" {
			t.Errorf("Error constant at index %d has empty message", i)
		}
	}
}
