package friendship

import (
	"context"
	"strings"
	"sync"
	"time"

	"courier/internal/identity"
)

// MemoryStore is the in-memory Store used when no database is configured and
// by unit tests.
type MemoryStore struct {
	mu       sync.Mutex
	edges    map[string]Edge      // edge id -> edge
	byPair   map[string]string    // owner|friend -> edge id
	byOwner  map[string][]string  // owner id -> edge ids, insertion order
	messages map[string][]Message // edge id -> messages, append order
}

// NewMemoryStore constructs an empty in-memory friendship store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		edges:    make(map[string]Edge),
		byPair:   make(map[string]string),
		byOwner:  make(map[string][]string),
		messages: make(map[string][]Message),
	}
}

func pairKey(ownerID, friendID string) string {
	return ownerID + "|" + friendID
}

// CreateEdge inserts a directed edge. Re-adding the same pair overwrites the
// display name rather than erroring, matching the permissive source behavior.
func (s *MemoryStore) CreateEdge(ctx context.Context, ownerID, friendID, displayName string, now time.Time) (Edge, error) {
	if err := ctx.Err(); err != nil {
		return Edge{}, err
	}
	if ownerID == "" || friendID == "" {
		return Edge{}, ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byPair[pairKey(ownerID, friendID)]; ok {
		e := s.edges[id]
		e.DisplayName = displayName
		s.edges[id] = e
		return e, nil
	}

	id, err := identity.NewID(now)
	if err != nil {
		return Edge{}, err
	}

	e := Edge{
		ID:          id,
		OwnerID:     ownerID,
		FriendID:    friendID,
		DisplayName: displayName,
		CreatedAt:   now,
	}
	s.edges[id] = e
	s.byPair[pairKey(ownerID, friendID)] = id
	s.byOwner[ownerID] = append(s.byOwner[ownerID], id)
	return e, nil
}

// FindEdge returns the directed edge owner→friend, or ErrNotFound.
func (s *MemoryStore) FindEdge(ctx context.Context, ownerID, friendID string) (Edge, error) {
	if err := ctx.Err(); err != nil {
		return Edge{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPair[pairKey(strings.TrimSpace(ownerID), strings.TrimSpace(friendID))]
	if !ok {
		return Edge{}, ErrNotFound
	}
	return s.edges[id], nil
}

// ListEdges returns the owner's edges in insertion order.
func (s *MemoryStore) ListEdges(ctx context.Context, ownerID string) ([]Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byOwner[strings.TrimSpace(ownerID)]
	out := make([]Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.edges[id])
	}
	return out, nil
}

// CreateMessage appends an immutable message bound to an existing edge.
func (s *MemoryStore) CreateMessage(ctx context.Context, content, senderID, edgeID string, now time.Time) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	if content == "" || senderID == "" || edgeID == "" {
		return Message{}, ErrInvalidInput
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[edgeID]; !ok {
		return Message{}, ErrNotFound
	}

	id, err := identity.NewID(now)
	if err != nil {
		return Message{}, err
	}

	m := Message{
		ID:        id,
		Content:   content,
		SenderID:  senderID,
		EdgeID:    edgeID,
		CreatedAt: now,
	}
	s.messages[edgeID] = append(s.messages[edgeID], m)
	return m, nil
}

// LatestMessage returns the most recently appended message on an edge.
func (s *MemoryStore) LatestMessage(ctx context.Context, edgeID string) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[edgeID]
	if len(msgs) == 0 {
		return Message{}, ErrNotFound
	}
	return msgs[len(msgs)-1], nil
}

// MessagesOnEdge returns all messages on an edge in append order.
// Used by tests and the full-state read path.
func (s *MemoryStore) MessagesOnEdge(ctx context.Context, edgeID string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Message(nil), s.messages[edgeID]...), nil
}
