// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined
// here. This prevents typos, documents dependencies, and makes key usage
// discoverable. Request-ID and logger propagation live in pkg/observability,
// which keeps its keys private behind typed accessors.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains the authenticated *auth.User
	// Set by: middleware.Auth (pkg/middleware/auth.go)
	// Required by: permission middleware and protected catalog endpoints
	AuthKey Key = "auth_identity"
)

// WithAuth adds the authenticated user to the context
func WithAuth(ctx context.Context, user interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, user)
}
