package utils

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// DereferencePtr returns the pointed-to value, or the optional default
// (zero value when omitted) for a nil pointer.
func DereferencePtr[T any](ptr *T, def ...T) T {
	if ptr != nil {
		return *ptr
	}
	if len(def) > 0 {
		return def[0]
	}
	var zero T
	return zero
}

func UniqueSlice[T comparable](input []T) []T {
	seen := make(map[T]struct{}, len(input))
	result := make([]T, 0, len(input))
	for _, v := range input {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

func ProcessValidationErrors(err error) map[string]string {

	errorResponse := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errorResponse["error"] = err.Error()
		return errorResponse
	}

	for _, e := range validationErrors {
		errorResponse[e.Field()] = fmt.Sprintf("failed on the '%s' rule", e.Tag())
	}
	return errorResponse
}

// ParseDate parses a YYYY-MM-DD date string. A garbled value is a
// validation error, not a server fault.
func ParseDate(dateString string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", dateString)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrorValidation, dateString)
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM month string to the first instant of the month.
func ParseMonth(monthString string) (time.Time, error) {
	t, err := time.Parse("2006-01", monthString)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid month %q, expected YYYY-MM", ErrorValidation, monthString)
	}
	return t, nil
}
