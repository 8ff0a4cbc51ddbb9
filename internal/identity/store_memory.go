package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store used when no database is configured and
// by unit tests. Uniqueness is enforced on the normalized name.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]UserAuth
	byName  map[string]string // normalized name -> user id
}

// NewMemoryStore constructs an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]UserAuth),
		byName: make(map[string]string),
	}
}

// CreateUser creates a user plus credential; ErrConflict on a duplicate name.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewID(now)
	if err != nil {
		return User{}, err
	}

	norm := NormalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[norm]; exists {
		return User{}, ErrConflict
	}

	u := User{ID: id, Name: name, CreatedAt: now}
	s.byID[id] = UserAuth{User: u, PasswordHash: in.PasswordHash}
	s.byName[norm] = id
	return u, nil
}

// GetUserAuthByName returns the user and its password hash for login checks.
func (s *MemoryStore) GetUserAuthByName(ctx context.Context, name string) (UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byName[NormalizeName(name)]
	if !ok {
		return UserAuth{}, ErrNotFound
	}
	return s.byID[id], nil
}

// GetUserByID returns a user by its durable identity.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ua, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return User{}, ErrNotFound
	}
	return ua.User, nil
}

// GetUserByName returns a user by name without exposing the credential.
func (s *MemoryStore) GetUserByName(ctx context.Context, name string) (User, error) {
	ua, err := s.GetUserAuthByName(ctx, name)
	if err != nil {
		return User{}, err
	}
	return ua.User, nil
}
