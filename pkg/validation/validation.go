// Package validation collects field-level validation failures for incoming
// request payloads. All violations found in a payload are reported together
// in a single Error, so clients see every problem at once rather than one
// per round trip.
package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// Violation describes a single failed constraint on a named field
type Violation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
}

// Error aggregates every violation found in a payload
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Constraint)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Details returns the violations as a field -> constraint map for transport
func (e *Error) Details() map[string]string {
	details := make(map[string]string, len(e.Violations))
	for _, v := range e.Violations {
		details[v.Field] = v.Constraint
	}
	return details
}

// Validator accumulates violations across checks
type Validator struct {
	violations []Violation
}

// New creates an empty validator
func New() *Validator {
	return &Validator{}
}

// Add records a violation
func (v *Validator) Add(field, constraint string) {
	v.violations = append(v.violations, Violation{Field: field, Constraint: constraint})
}

// StringLength checks that len(value) is within [min, max] runes
func (v *Validator) StringLength(field, value string, min, max int) {
	n := len([]rune(value))
	if n < min || n > max {
		v.Add(field, fmt.Sprintf("must be between %d and %d characters", min, max))
	}
}

// MinLength checks that value has at least min runes
func (v *Validator) MinLength(field, value string, min int) {
	if len([]rune(value)) < min {
		v.Add(field, fmt.Sprintf("must be at least %d characters", min))
	}
}

// ISBN checks the catalog ISBN rule: after stripping hyphens and spaces the
// remainder must be non-empty and entirely alphanumeric
func (v *Validator) ISBN(field, value string) {
	stripped := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, value)

	if stripped == "" {
		v.Add(field, "must contain alphanumeric characters")
		return
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			v.Add(field, "must only contain alphanumeric characters, hyphens, or spaces")
			return
		}
	}
}

// Err returns the accumulated violations as an *Error, or nil if all checks passed
func (v *Validator) Err() error {
	if len(v.violations) == 0 {
		return nil
	}
	return &Error{Violations: v.violations}
}
