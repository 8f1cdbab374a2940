package errors

import (
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("access_code", "does not match", "WRONG")

	if err.Field != "access_code" {
		t.Errorf("Expected field to be 'access_code', got '%s'", err.Field)
	}

	if err.Message != "does not match" {
		t.Errorf("Expected message to be 'does not match', got '%s'", err.Message)
	}

	expected := "validation error on field 'access_code': does not match"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("title", "is required", nil))
	expected := "validation failed: title is required"
	if errs.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("questions", "cannot be empty", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, errs.Error())
	}
}
