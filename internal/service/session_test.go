package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"labstock-api/internal/cache"
	"labstock-api/internal/model"
	"labstock-api/internal/repository"
)

// mockUserRepo is an in-memory UserRepository for testing.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // keyed by id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func newTestSessions(t *testing.T) *SessionService {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })

	s := NewSessionService(newMockUserRepo(), c, time.Hour)
	if s == nil {
		t.Fatal("NewSessionService returned nil with valid deps")
	}
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	user, err := s.Register(ctx, "Tech@Lab.example", "hunter2hunter2", "Lab Tech")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "tech@lab.example" {
		t.Errorf("expected lowercased email, got %q", user.Email)
	}
	if user.PasswordHash == "hunter2hunter2" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	token, loggedIn, err := s.Login(ctx, "tech@lab.example", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !strings.HasPrefix(token, TokenPrefix) {
		t.Errorf("expected token prefix %q, got %q", TokenPrefix, token)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("login returned wrong user: %s", loggedIn.ID)
	}

	session, err := s.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if session.UserID != user.ID {
		t.Errorf("session bound to wrong user: %s", session.UserID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "tech@lab.example", "hunter2hunter2", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := s.Register(ctx, "tech@lab.example", "anotherpassword", "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "not-an-email", "hunter2hunter2", ""); err == nil {
		t.Error("expected error for invalid email")
	}
	if _, err := s.Register(ctx, "tech@lab.example", "short", ""); err == nil {
		t.Error("expected error for short password")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "tech@lab.example", "hunter2hunter2", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, _, err := s.Login(ctx, "tech@lab.example", "wrongpassword")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	_, _, err = s.Login(ctx, "nobody@lab.example", "hunter2hunter2")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "tech@lab.example", "hunter2hunter2", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	token, _, err := s.Login(ctx, "tech@lab.example", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := s.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	if _, err := s.Validate(ctx, token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("expected ErrSessionInvalid after revoke, got %v", err)
	}
}

func TestValidate_MalformedToken(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "bearer xyz"} {
		if _, err := s.Validate(ctx, token); !errors.Is(err, ErrSessionInvalid) {
			t.Errorf("expected ErrSessionInvalid for %q, got %v", token, err)
		}
	}
}
