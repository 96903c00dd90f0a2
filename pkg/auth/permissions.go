package auth

import (
	"encoding/json"
	"sort"
	"strings"
)

// PermissionSet is a flat set of capability strings. There is no hierarchy:
// holding create_book says nothing about read_book.
type PermissionSet map[string]struct{}

// ParsePermissions builds a set from the stored comma-delimited form.
// Empty elements and surrounding whitespace are dropped.
func ParsePermissions(s string) PermissionSet {
	set := make(PermissionSet)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set grants the named capability
func (s PermissionSet) Has(permission string) bool {
	_, ok := s[permission]
	return ok
}

// String returns the stored comma-delimited form, sorted for determinism
func (s PermissionSet) String() string {
	perms := make([]string, 0, len(s))
	for p := range s {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return strings.Join(perms, ",")
}

// MarshalJSON renders the set as a sorted JSON array
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	perms := make([]string, 0, len(s))
	for p := range s {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return json.Marshal(perms)
}

// UnmarshalJSON accepts a JSON array of capability strings
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var perms []string
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		if p != "" {
			set[p] = struct{}{}
		}
	}
	*s = set
	return nil
}
