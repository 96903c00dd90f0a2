// Package middleware provides request authentication and authorization for
// the bibliod HTTP surface.
package middleware

import (
	"net/http"
	"strings"

	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/contextkeys"
	"github.com/bibliod/bibliod/pkg/httputil"
)

// Auth authenticates requests from the Authorization: Bearer header
type Auth struct {
	service *auth.Service
}

// NewAuth creates authentication middleware backed by the auth service
func NewAuth(service *auth.Service) *Auth {
	return &Auth{
		service: service,
	}
}

// Handler wraps an HTTP handler with bearer-token authentication. Missing
// headers, malformed headers, invalid or expired tokens, and tokens whose
// subject no longer exists all produce the same 401; the distinction stays
// in server-side logs only.
func (m *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		user, err := m.service.Authenticate(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity extracts the authenticated user from the request, or nil
func Identity(r *http.Request) *auth.User {
	v := r.Context().Value(contextkeys.AuthKey)
	if v == nil {
		return nil
	}
	user, ok := v.(*auth.User)
	if !ok {
		return nil
	}
	return user
}

// RequirePermission creates middleware that checks the authenticated user's
// permission set for a specific capability. It must run inside Auth.Handler;
// a request that reaches it unauthenticated is rejected with 401.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := Identity(r)
			if user == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			if !user.Permissions.Has(permission) {
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
