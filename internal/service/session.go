package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"labstock-api/internal/cache"
	"labstock-api/internal/model"
	"labstock-api/internal/repository"
	"labstock-api/pkg/uid"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "lst_"

	// DefaultSessionTTL is the default session lifetime
	DefaultSessionTTL = 12 * time.Hour

	// sessionKeyPrefix is the cache key prefix for sessions
	sessionKeyPrefix = "labstock:session:"
)

var (
	// ErrInvalidCredentials is returned on a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registering an already-used email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrSessionInvalid is returned for missing, malformed, or expired tokens.
	ErrSessionInvalid = errors.New("invalid or expired session")
)

// SessionService handles user registration, login, and session tokens.
// Tokens are opaque and stored in the cache under a prefixed key.
type SessionService struct {
	users repository.UserRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewSessionService creates a new session service. Returns nil if either
// dependency is missing.
func NewSessionService(users repository.UserRepository, c cache.Cache, ttl time.Duration) *SessionService {
	if users == nil || c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{users: users, cache: c, ttl: ttl}
}

// Register creates a new user account with a bcrypt-hashed password.
func (s *SessionService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uid.NewUser(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[SessionService] Registered user %s", user.ID)
	return user, nil
}

// Login verifies credentials and creates a session token.
func (s *SessionService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.createSession(ctx, user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// createSession generates an opaque token and stores the session data.
func (s *SessionService) createSession(ctx context.Context, user *model.User) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := TokenPrefix + hex.EncodeToString(tokenBytes)

	now := time.Now().UTC()
	data := model.SessionData{
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize session data: %w", err)
	}

	key := sessionKeyPrefix + token
	if err := s.cache.Set(ctx, key, jsonData, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	log.Printf("[SessionService] Session created for user %s, expires %v", user.ID, data.ExpiresAt)
	return token, nil
}

// Validate checks a token and returns its session data.
func (s *SessionService) Validate(ctx context.Context, token string) (*model.SessionData, error) {
	if token == "" || !strings.HasPrefix(token, TokenPrefix) {
		return nil, ErrSessionInvalid
	}

	key := sessionKeyPrefix + token
	jsonData, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var data model.SessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}

	if time.Now().After(data.ExpiresAt) {
		_ = s.cache.Delete(ctx, key)
		return nil, ErrSessionInvalid
	}

	return &data, nil
}

// Revoke deletes a session token.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+token)
}

// Refresh extends the TTL of an existing session.
func (s *SessionService) Refresh(ctx context.Context, token string) error {
	data, err := s.Validate(ctx, token)
	if err != nil {
		return err
	}

	data.ExpiresAt = time.Now().UTC().Add(s.ttl)
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize session data: %w", err)
	}
	return s.cache.Set(ctx, sessionKeyPrefix+token, jsonData, s.ttl)
}

// UserByID resolves a session's user account.
func (s *SessionService) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}
