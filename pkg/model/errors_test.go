package model

import "testing"

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: ErrNotFound, Message: "Actor 'apify~web-scraper' not found"}
	want := "NOT_FOUND: Actor 'apify~web-scraper' not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("Actor", "jane~crawler")
	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Message != "Actor 'jane~crawler' not found" {
		t.Errorf("Message = %q, want %q", err.Message, "Actor 'jane~crawler' not found")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("Invalid input",
		FieldError{Field: "maxItems", Message: "expected integer"},
		FieldError{Field: "extra", Message: "malformed JSON"},
	)
	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}
}

func TestNewUnauthorizedError(t *testing.T) {
	err := NewUnauthorizedError("Not authenticated. Please provide an API key first.")
	if err.Code != ErrUnauthorized {
		t.Errorf("Code = %q, want %q", err.Code, ErrUnauthorized)
	}
}
