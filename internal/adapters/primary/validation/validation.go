package validation

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/askvinny/agent-performance-backend/internal/core/errors"
)

// DateLayout is the wire format for dates in query parameters and JSON
// bodies.
const DateLayout = "2006-01-02"

// Validator validates request data
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if value == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// Date validates that a string parses in the wire date format
func (v *Validator) Date(field, value string) *Validator {
	if value != "" {
		if _, err := time.Parse(DateLayout, value); err != nil {
			v.errors.Add(field, "Must be a date in YYYY-MM-DD format")
		}
	}
	return v
}

// Min validates that an integer is at least min
func (v *Validator) Min(field string, value, min int) *Validator {
	if value < min {
		v.errors.Add(field, "Must be at least "+strconv.Itoa(min))
	}
	return v
}

// Custom adds a custom validation error if the condition is false
func (v *Validator) Custom(field string, condition bool, message string) *Validator {
	if !condition {
		v.errors.Add(field, message)
	}
	return v
}

// ParseDateQueryParam parses an optional YYYY-MM-DD query parameter.
// Returns nil when the parameter is absent.
func ParseDateQueryParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	parsed, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ParseIntQueryParam parses an optional integer query parameter.
// Returns nil when the parameter is absent.
func ParseIntQueryParam(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
