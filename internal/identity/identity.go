// Package identity holds courier's durable user model: registered users and
// the credential (password hash) attached to each of them.
package identity

import (
	"context"
	"strings"
	"time"
)

// User is courier's canonical security principal. The ID is immutable once
// created and outlives any live connection.
type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// UserAuth pairs a user with its stored password hash for login checks.
// The hash never leaves the auth path.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a registration request. PasswordHash must already
// be a PHC-encoded argon2id hash; stores never see plaintext passwords.
type CreateUserInput struct {
	Name         string
	PasswordHash string
	Now          time.Time
}

// Store is the identity persistence boundary.
//
// Missing rows are reported via ErrNotFound; duplicate names via ErrConflict.
// Callers treat ErrNotFound as a normal negative result on the read paths.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserAuthByName(ctx context.Context, name string) (UserAuth, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByName(ctx context.Context, name string) (User, error)
}

// NormalizeName performs case-insensitive canonicalization of usernames.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
