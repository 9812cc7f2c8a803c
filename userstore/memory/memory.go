// Package memory provides an in-process authgate.UserStore. It is meant for
// tests and single-instance development servers; nothing survives a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authgate"
)

// Store is a mutex-guarded map of users. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]authgate.User
	byUsername map[string]string
	byEmail    map[string]string
}

var _ authgate.UserStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]authgate.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(email)
}

// Create stores u. Both uniqueness checks and the insert happen under one
// lock, so of two concurrent registrations for the same username exactly
// one succeeds.
func (s *Store) Create(_ context.Context, u authgate.User) (authgate.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[u.Username]; ok {
		return authgate.User{}, authgate.ErrDuplicateUsername
	}
	if _, ok := s.byEmail[emailKey(u.Email)]; ok {
		return authgate.User{}, authgate.ErrDuplicateEmail
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.byID[u.ID] = u
	s.byUsername[u.Username] = u.ID
	s.byEmail[emailKey(u.Email)] = u.ID
	return u, nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (authgate.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return authgate.User{}, authgate.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *Store) FindByID(_ context.Context, id string) (authgate.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return authgate.User{}, authgate.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return authgate.ErrUserNotFound
	}
	u.PasswordHash = hash
	s.byID[id] = u
	return nil
}

// SetRole changes a user's role. Operators use it to promote an admin.
func (s *Store) SetRole(_ context.Context, id, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return authgate.ErrUserNotFound
	}
	u.Role = role
	s.byID[id] = u
	return nil
}

// SetActive enables or disables a user.
func (s *Store) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return authgate.ErrUserNotFound
	}
	u.Active = active
	s.byID[id] = u
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return authgate.ErrUserNotFound
	}
	delete(s.byID, id)
	delete(s.byUsername, u.Username)
	delete(s.byEmail, emailKey(u.Email))
	return nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
