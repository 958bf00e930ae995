package model

import (
	"strings"
	"unicode"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateAccount checks an Account for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the account is valid.
func ValidateAccount(a *Account) error {
	var ve ValidationError

	// Username: required, at most 64 characters, no whitespace.
	switch {
	case a.Username == "":
		ve.Errors = append(ve.Errors, FieldError{Field: "username", Message: "is required"})
	case len([]rune(a.Username)) > 64:
		ve.Errors = append(ve.Errors, FieldError{Field: "username", Message: "must be 64 characters or fewer"})
	case strings.IndexFunc(a.Username, unicode.IsSpace) >= 0:
		ve.Errors = append(ve.Errors, FieldError{Field: "username", Message: "must not contain whitespace"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
