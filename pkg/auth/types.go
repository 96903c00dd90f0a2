package auth

import (
	"context"
	"errors"
)

// User represents a registered account
type User struct {
	ID           int64         `json:"id"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"` // never exposed
	Permissions  PermissionSet `json:"permissions"`
}

// Capability tokens checked by exact string membership
const (
	PermCreateBook = "create_book"
	PermReadBook   = "read_book"
	PermDeleteBook = "delete_book"
)

// TokenResponse is the JSON shape returned by register and login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserStore is the persistence contract for users. Implementations must
// enforce username uniqueness with a store-level constraint and report a
// violation as ErrUsernameTaken.
type UserStore interface {
	// CreateUser inserts the user and fills in the store-assigned ID.
	CreateUser(ctx context.Context, user *User) error

	// UserByUsername returns ErrUserNotFound when no such user exists.
	UserByUsername(ctx context.Context, username string) (*User, error)
}

var (
	// ErrUsernameTaken is returned when registering an already-registered username
	ErrUsernameTaken = errors.New("username already exists")

	// ErrUserNotFound is returned by stores for missing users. It never
	// reaches clients: during authentication it is reported as ErrInvalidToken.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials covers both unknown username and wrong password,
	// deliberately indistinguishable to the caller
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken covers malformed tokens, bad signatures, and tokens
	// whose subject no longer resolves to a user
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when the token signature is valid but the
	// expiry has passed
	ErrExpiredToken = errors.New("token expired")
)
