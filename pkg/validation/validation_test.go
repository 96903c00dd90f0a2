package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_AllChecksPass(t *testing.T) {
	v := New()
	v.StringLength("username", "alice", 3, 50)
	v.MinLength("password", "secret1", 6)
	v.ISBN("isbn", "978-0-14-044913-6")

	assert.NoError(t, v.Err())
}

func TestValidator_CollectsAllViolations(t *testing.T) {
	v := New()
	v.StringLength("username", "al", 3, 50)
	v.MinLength("password", "meh", 6)
	v.ISBN("isbn", "978_0140449136")

	err := v.Err()
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Violations, 3)

	details := verr.Details()
	assert.Contains(t, details["username"], "between 3 and 50")
	assert.Contains(t, details["password"], "at least 6")
	assert.Contains(t, details["isbn"], "alphanumeric")
}

func TestValidator_StringLength(t *testing.T) {
	tests := []struct {
		name  string
		value string
		min   int
		max   int
		ok    bool
	}{
		{"at minimum", "abc", 3, 50, true},
		{"at maximum", "abcde", 1, 5, true},
		{"too short", "ab", 3, 50, false},
		{"too long", "abcdef", 1, 5, false},
		{"empty below minimum", "", 1, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.StringLength("field", tt.value, tt.min, tt.max)
			if tt.ok {
				assert.NoError(t, v.Err())
			} else {
				assert.Error(t, v.Err())
			}
		})
	}
}

func TestValidator_ISBN(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"plain digits", "9781234567890", true},
		{"hyphenated", "978-1-234-56789-0", true},
		{"spaces", "978 1 234 56789 0", true},
		{"isbn10 with X", "043942089X", true},
		{"underscore", "978_1234567890", false},
		{"period", "978.1234567890", false},
		{"only separators", "-- --", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.ISBN("isbn", tt.value)
			if tt.ok {
				assert.NoError(t, v.Err())
			} else {
				assert.Error(t, v.Err())
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	v := New()
	v.Add("title", "must be between 1 and 200 characters")

	err := v.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "title")
}
