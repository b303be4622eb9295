// Package users handles registration, credential checks, and token issuance
// for board members.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dyluth/warren/pkg/board"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong
// password. Callers get the same error for both so login attempts cannot
// probe which emails are registered.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = errors.New("an account with this email already exists")

// RegistrationError reports a signup request with unusable input.
type RegistrationError struct {
	Reason string
}

func (e *RegistrationError) Error() string {
	return e.Reason
}

// Service manages user accounts and session tokens.
type Service struct {
	store      *board.Client
	signingKey []byte
	tokenTTL   time.Duration
}

// NewService creates a user service. Tokens are signed with signingKey and
// expire after tokenTTL.
func NewService(store *board.Client, signingKey []byte, tokenTTL time.Duration) *Service {
	return &Service{
		store:      store,
		signingKey: signingKey,
		tokenTTL:   tokenTTL,
	}
}

// Register creates a new account. The password is stored as a bcrypt hash,
// never in clear.
func (s *Service) Register(ctx context.Context, email, password string) (*board.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &RegistrationError{Reason: "please provide a valid email address"}
	}
	if password == "" {
		return nil, &RegistrationError{Reason: "please provide a password"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &board.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAtMs:  time.Now().UnixMilli(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, board.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login checks the credentials and returns a signed session token alongside
// the account.
func (s *Service) Login(ctx context.Context, email, password string) (string, *board.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if board.IsNotFound(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Authenticate verifies a session token and returns the ID of the user it
// was issued to.
func (s *Service) Authenticate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid session token")
	}
	return claims.Subject, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, userID string) (*board.User, error) {
	return s.store.GetUser(ctx, userID)
}

// List returns all registered users in registration order.
func (s *Service) List(ctx context.Context) ([]*board.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *Service) issueToken(user *board.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}
