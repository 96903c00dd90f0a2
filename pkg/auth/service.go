package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/bibliod/bibliod/pkg/observability"
	"github.com/bibliod/bibliod/pkg/validation"
)

// DefaultPermissions is granted to users who register without naming any
const DefaultPermissions = PermReadBook

// Service provides registration, login, and bearer-token authentication
type Service struct {
	store      UserStore
	tokens     *TokenCodec
	bcryptCost int
	metrics    *observability.Metrics
}

// NewService creates an auth service. metrics may be nil.
func NewService(store UserStore, tokens *TokenCodec, bcryptCost int, metrics *observability.Metrics) *Service {
	return &Service{
		store:      store,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		metrics:    metrics,
	}
}

// RegisterRequest is the payload for Register. Permissions is the
// comma-delimited capability list; empty selects DefaultPermissions.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Permissions string `json:"permissions,omitempty"`
}

// Register validates the payload, stores the new user with a hashed
// password, and returns a token for the fresh identity. A username already
// in use yields ErrUsernameTaken; the store's uniqueness constraint is the
// authoritative check, so concurrent registrations cannot both succeed.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (TokenResponse, error) {
	v := validation.New()
	v.StringLength("username", req.Username, 3, 50)
	v.MinLength("password", req.Password, 6)
	if err := v.Err(); err != nil {
		return TokenResponse{}, err
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	permissions := req.Permissions
	if permissions == "" {
		permissions = DefaultPermissions
	}

	user := &User{
		Username:     req.Username,
		PasswordHash: hash,
		Permissions:  ParsePermissions(permissions),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		s.countRegistration("error")
		return TokenResponse{}, err
	}
	s.countRegistration("ok")

	return s.issueToken(user.Username)
}

// Login verifies the credentials and returns a fresh token. An unknown
// username and a wrong password are deliberately indistinguishable: both
// yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	user, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.countLogin("denied")
			return TokenResponse{}, ErrInvalidCredentials
		}
		s.countLogin("error")
		return TokenResponse{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		s.countLogin("denied")
		return TokenResponse{}, ErrInvalidCredentials
	}

	s.countLogin("ok")
	return s.issueToken(user.Username)
}

// Authenticate verifies a bearer token and resolves its subject to a stored
// user. A token whose subject no longer exists is reported as
// ErrInvalidToken, identical to a forged token.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*User, error) {
	subject, err := s.tokens.Verify(tokenString)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			s.countVerification("expired")
		} else {
			s.countVerification("invalid")
		}
		return nil, err
	}

	user, err := s.store.UserByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.countVerification("invalid")
			return nil, ErrInvalidToken
		}
		s.countVerification("error")
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}

	s.countVerification("ok")
	return user, nil
}

func (s *Service) issueToken(subject string) (TokenResponse, error) {
	token, err := s.tokens.Issue(subject)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

func (s *Service) countRegistration(status string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) countLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) countVerification(status string) {
	if s.metrics != nil {
		s.metrics.TokenVerificationsTotal.WithLabelValues(status).Inc()
	}
}
