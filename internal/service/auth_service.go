package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"go-minimal-auth/internal/model"
	"go-minimal-auth/internal/security"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 50
	passwordMinLength = 6
	passwordMaxLength = 128
)

type userStore interface {
	FindByUsername(ctx context.Context, username string) (model.User, bool, error)
	Insert(ctx context.Context, username string, passwordHash string) (model.User, error)
	ListUsernamesOrderedByCreation(ctx context.Context) ([]string, error)
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext string, hash string) (bool, error)
}

type tokenIssuer interface {
	Issue(claims security.Claims, ttl time.Duration) (string, error)
	Verify(token string) (security.Claims, error)
}

// AuthService implements signup, login and username listing on top of a user
// store, a password hasher and a token issuer. It holds no mutable state and
// is safe for concurrent use.
type AuthService struct {
	store  userStore
	hasher passwordHasher
	tokens tokenIssuer
}

func NewAuthService(store userStore, hasher passwordHasher, tokens tokenIssuer) (*AuthService, error) {
	if store == nil {
		return nil, errors.New("user store is required")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}

	return &AuthService{store: store, hasher: hasher, tokens: tokens}, nil
}

// Signup registers a new user and returns a token for it. The lookup before
// the insert only produces the friendly conflict early; the store's unique
// constraint is what actually guarantees one row per username.
func (s *AuthService) Signup(ctx context.Context, username string, password string) (model.AuthResponse, error) {
	if err := validateSignup(username, password); err != nil {
		return model.AuthResponse{}, err
	}

	_, exists, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if exists {
		return model.AuthResponse{}, model.ErrUserAlreadyExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.AuthResponse{}, err
	}

	if _, err := s.store.Insert(ctx, username, hash); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			slog.Info("signup lost uniqueness race", "username", username)
		}
		return model.AuthResponse{}, err
	}

	slog.Info("user signed up", "username", username)
	return s.issueAuth(username)
}

// Login checks credentials. An unknown username and a wrong password fail
// with the same error.
func (s *AuthService) Login(ctx context.Context, username string, password string) (model.AuthResponse, error) {
	if err := validateLogin(username, password); err != nil {
		return model.AuthResponse{}, err
	}

	user, exists, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if !exists {
		slog.Warn("login rejected", "username", username)
		return model.AuthResponse{}, model.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		slog.Error("stored password hash is unreadable", "username", username, "error", err)
		return model.AuthResponse{}, err
	}
	if !ok {
		slog.Warn("login rejected", "username", username)
		return model.AuthResponse{}, model.ErrInvalidCredentials
	}

	return s.issueAuth(username)
}

// ListUsernames returns every username in creation order. Callers are
// expected to have authenticated the request already.
func (s *AuthService) ListUsernames(ctx context.Context) ([]string, error) {
	usernames, err := s.store.ListUsernamesOrderedByCreation(ctx)
	if err != nil {
		return nil, err
	}
	if usernames == nil {
		usernames = []string{}
	}
	return usernames, nil
}

func (s *AuthService) ValidateToken(token string) (security.Claims, error) {
	return s.tokens.Verify(token)
}

func (s *AuthService) issueAuth(username string) (model.AuthResponse, error) {
	token, err := s.tokens.Issue(security.Claims{Subject: username}, 0)
	if err != nil {
		return model.AuthResponse{}, fmt.Errorf("issue token: %w", err)
	}

	return model.AuthResponse{Token: token, Username: username}, nil
}

func validateSignup(username string, password string) error {
	return toValidationError(validation.Errors{
		"username": validation.Validate(username,
			validation.Required,
			validation.RuneLength(usernameMinLength, usernameMaxLength),
		),
		"password": validation.Validate(password,
			validation.Required,
			validation.RuneLength(passwordMinLength, passwordMaxLength),
		),
	}.Filter())
}

// Login applies no length bounds: a too-short password is just a
// wrong password.
func validateLogin(username string, password string) error {
	return toValidationError(validation.Errors{
		"username": validation.Validate(username, validation.Required),
		"password": validation.Validate(password, validation.Required),
	}.Filter())
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, fieldErr := range errs {
			fields[field] = fieldErr.Error()
		}
	} else {
		fields["request"] = err.Error()
	}

	return &model.ValidationError{Fields: fields}
}
