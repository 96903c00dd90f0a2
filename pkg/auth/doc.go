// Package auth implements authentication for the bibliod catalog service:
// bcrypt password hashing, signed time-limited bearer tokens, and flat
// permission sets.
//
// # Tokens
//
// Tokens are HS256-signed JWTs carrying the username as subject and an
// absolute expiry. They are never persisted; possession of a valid,
// unexpired token is the sole authentication proof.
//
//	codec := auth.NewTokenCodec("signing-key", 30*time.Minute)
//	token, err := codec.Issue("alice")
//	subject, err := codec.Verify(token)
//
// Verify distinguishes ErrExpiredToken from ErrInvalidToken internally;
// the HTTP layer reports both as 401 without telling the client which.
//
// # Permissions
//
// A user's permissions are a flat set of capability strings with no
// hierarchy. They are parsed once from the stored comma-delimited form
// when the user is loaded, never re-split at check sites.
//
//	perms := auth.ParsePermissions("create_book,read_book")
//	perms.Has(auth.PermCreateBook) // true
//	perms.Has(auth.PermDeleteBook) // false
package auth
