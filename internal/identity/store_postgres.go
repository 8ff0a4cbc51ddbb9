package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// Schema/table identifiers are validated and quoted to keep identifier
// interpolation safe.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "courier").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "courier",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

func pgIdent(schema, table string) string {
	return `"` + schema + `"."` + table + `"`
}

// CreateUser inserts a user row with its credential.
// A unique violation on the normalized name maps to ErrConflict.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
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

	users := pgIdent(s.schema, "users")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (id, name, name_norm, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, name, NormalizeName(name), in.PasswordHash, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrConflict
		}
		return User{}, err
	}

	return User{ID: id, Name: name, CreatedAt: now}, nil
}

// GetUserAuthByName looks up a user plus credential by normalized name.
func (s *PostgresStore) GetUserAuthByName(ctx context.Context, name string) (UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	users := pgIdent(s.schema, "users")

	var ua UserAuth
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, password_hash, created_at FROM `+users+` WHERE name_norm = $1`,
		NormalizeName(name),
	).Scan(&ua.User.ID, &ua.User.Name, &ua.PasswordHash, &ua.User.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, ErrNotFound
	}
	if err != nil {
		return UserAuth{}, err
	}
	return ua, nil
}

// GetUserByID returns a user row by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")

	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM `+users+` WHERE id = $1`,
		strings.TrimSpace(id),
	).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUserByName returns a user row by normalized name.
func (s *PostgresStore) GetUserByName(ctx context.Context, name string) (User, error) {
	ua, err := s.GetUserAuthByName(ctx, name)
	if err != nil {
		return User{}, err
	}
	return ua.User, nil
}
