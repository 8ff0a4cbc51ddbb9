package friendship

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courier/internal/identity"
)

// PostgresStore implements friendship/message persistence over PostgreSQL.
// The pgx pool is owned by the caller; this store must NOT close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "courier").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("friendship: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("friendship: invalid schema identifier")
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
		return nil, fmt.Errorf("friendship: nil pool")
	}
	return st, nil
}

func pgIdent(schema, table string) string {
	return `"` + schema + `"."` + table + `"`
}

// CreateEdge inserts a directed edge; re-adding the same pair updates the
// display name (upsert on the owner/friend pair).
func (s *PostgresStore) CreateEdge(ctx context.Context, ownerID, friendID, displayName string, now time.Time) (Edge, error) {
	if err := ctx.Err(); err != nil {
		return Edge{}, err
	}
	if ownerID == "" || friendID == "" {
		return Edge{}, ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := identity.NewID(now)
	if err != nil {
		return Edge{}, err
	}

	edges := pgIdent(s.schema, "friendships")

	var e Edge
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+edges+` (id, owner_id, friend_id, display_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (owner_id, friend_id)
		 DO UPDATE SET display_name = EXCLUDED.display_name
		 RETURNING id, owner_id, friend_id, display_name, created_at`,
		id, ownerID, friendID, displayName, now,
	).Scan(&e.ID, &e.OwnerID, &e.FriendID, &e.DisplayName, &e.CreatedAt)
	if err != nil {
		return Edge{}, err
	}
	return e, nil
}

// FindEdge returns the directed edge owner→friend, or ErrNotFound.
func (s *PostgresStore) FindEdge(ctx context.Context, ownerID, friendID string) (Edge, error) {
	if err := ctx.Err(); err != nil {
		return Edge{}, err
	}

	edges := pgIdent(s.schema, "friendships")

	var e Edge
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, friend_id, display_name, created_at
		 FROM `+edges+` WHERE owner_id = $1 AND friend_id = $2`,
		strings.TrimSpace(ownerID), strings.TrimSpace(friendID),
	).Scan(&e.ID, &e.OwnerID, &e.FriendID, &e.DisplayName, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Edge{}, ErrNotFound
	}
	if err != nil {
		return Edge{}, err
	}
	return e, nil
}

// ListEdges returns the owner's edges ordered by creation.
func (s *PostgresStore) ListEdges(ctx context.Context, ownerID string) ([]Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	edges := pgIdent(s.schema, "friendships")

	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, friend_id, display_name, created_at
		 FROM `+edges+` WHERE owner_id = $1 ORDER BY created_at, id`,
		strings.TrimSpace(ownerID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.FriendID, &e.DisplayName, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateMessage appends an immutable message row bound to an edge.
func (s *PostgresStore) CreateMessage(ctx context.Context, content, senderID, edgeID string, now time.Time) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	if content == "" || senderID == "" || edgeID == "" {
		return Message{}, ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := identity.NewID(now)
	if err != nil {
		return Message{}, err
	}

	messages := pgIdent(s.schema, "messages")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+messages+` (id, content, sender_id, friendship_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, content, senderID, edgeID, now,
	)
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:        id,
		Content:   content,
		SenderID:  senderID,
		EdgeID:    edgeID,
		CreatedAt: now,
	}, nil
}

// LatestMessage returns the newest message on an edge, or ErrNotFound.
func (s *PostgresStore) LatestMessage(ctx context.Context, edgeID string) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	messages := pgIdent(s.schema, "messages")

	var m Message
	err := s.pool.QueryRow(ctx,
		`SELECT id, content, sender_id, friendship_id, created_at
		 FROM `+messages+` WHERE friendship_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		edgeID,
	).Scan(&m.ID, &m.Content, &m.SenderID, &m.EdgeID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	return m, nil
}
