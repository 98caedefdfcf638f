// Package session owns the operator identity: it restores it from local
// storage at start-up and persists every change made by login and logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leca/skureview/internal/api"
	"github.com/leca/skureview/internal/database"
)

// Authenticator is the part of the API the store needs.
type Authenticator interface {
	Login(ctx context.Context, email string) (*api.LoginResponse, error)
	Logout(ctx context.Context, email string) error
}

// IdentityStore persists the identity between runs.
type IdentityStore interface {
	SaveIdentity(id database.Identity) error
	LoadIdentity() (*database.Identity, error)
	ClearIdentity() error
}

// Store holds the current identity.
type Store struct {
	auth   Authenticator
	db     IdentityStore
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	identity string
}

// New creates a Store. Call Restore to pick up a previous login.
func New(auth Authenticator, db IdentityStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{auth: auth, db: db, logger: logger, now: time.Now}
}

// Restore loads the persisted identity, if any. It returns the identity, or
// "" when nobody is logged in.
func (s *Store) Restore() (string, error) {
	id, err := s.db.LoadIdentity()
	if errors.Is(err, database.ErrNoIdentity) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("restore identity: %w", err)
	}
	s.mu.Lock()
	s.identity = id.Email
	s.mu.Unlock()
	return id.Email, nil
}

// Identity returns the current identity, "" when logged out.
func (s *Store) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// LoggedIn reports whether an identity is held.
func (s *Store) LoggedIn() bool { return s.Identity() != "" }

// ValidateEmail is the local check run before a login attempt.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return api.ValidationError("login", "email is required")
	}
	if !strings.Contains(email, "@") {
		return api.ValidationError("login", "please enter a valid email address")
	}
	return nil
}

// Login validates email, opens a backend session and persists the identity.
// A failed login leaves the previous identity untouched.
func (s *Store) Login(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if _, err := s.auth.Login(ctx, email); err != nil {
		return err
	}
	if err := s.db.SaveIdentity(database.Identity{Email: email, LoggedInAt: s.now()}); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}

	s.mu.Lock()
	s.identity = email
	s.mu.Unlock()
	s.logger.Info("Logged in", "email", email)
	return nil
}

// Logout ends the backend session and always clears the local identity,
// even if the backend call fails.
func (s *Store) Logout(ctx context.Context) error {
	email := s.Identity()
	if email != "" {
		if err := s.auth.Logout(ctx, email); err != nil {
			s.logger.Warn("Backend logout failed, clearing local identity anyway", "email", email, "err", err)
		}
	}

	s.mu.Lock()
	s.identity = ""
	s.mu.Unlock()

	if err := s.db.ClearIdentity(); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	s.logger.Info("Logged out", "email", email)
	return nil
}
