// Package friendship owns the directed friendship graph and the messages
// bound to it. A mutual relationship is two directed edges (A→B and B→A);
// message flow requires both.
package friendship

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// ErrNotFound is returned for missing edges or messages.
var ErrNotFound = errors.New("not_found")

// ErrInvalidInput is returned for blank identities or content.
var ErrInvalidInput = errors.New("invalid_input")

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Edge is one directed friendship record: the owner's view of a friend,
// including the display name the owner chose.
type Edge struct {
	ID          string
	OwnerID     string
	FriendID    string
	DisplayName string
	CreatedAt   time.Time
}

// Message is an immutable, append-only direct message. EdgeID references the
// receiving side's edge (owner = recipient, friend = sender); a message is
// only ever created after mutuality has been confirmed.
type Message struct {
	ID        string
	Content   string
	SenderID  string
	EdgeID    string
	CreatedAt time.Time
}

// Store is the friendship/message persistence boundary.
// Reads report missing rows via ErrNotFound; "no edge" is a normal negative
// result for callers, not a failure.
type Store interface {
	CreateEdge(ctx context.Context, ownerID, friendID, displayName string, now time.Time) (Edge, error)
	FindEdge(ctx context.Context, ownerID, friendID string) (Edge, error)
	ListEdges(ctx context.Context, ownerID string) ([]Edge, error)

	CreateMessage(ctx context.Context, content, senderID, edgeID string, now time.Time) (Message, error)
	LatestMessage(ctx context.Context, edgeID string) (Message, error)
}

// FriendView pairs an edge with the latest message received over it, if any.
type FriendView struct {
	Edge   Edge
	Latest *Message
}

// Service implements friendship authorization and edge-bound message appends
// on top of a Store.
type Service struct {
	log   *slog.Logger
	store Store
}

// NewService constructs a friendship Service.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log, store: store}
}

// AreMutualFriends reports whether both directed edges exist.
//
// Both lookups are always performed; symmetry is never assumed and the answer
// is never cached. A missing edge or a store failure yields false, since
// "not friends" is a normal negative result here, not an error.
func (s *Service) AreMutualFriends(ctx context.Context, idA, idB string) bool {
	idA = strings.TrimSpace(idA)
	idB = strings.TrimSpace(idB)
	if idA == "" || idB == "" {
		return false
	}

	if _, err := s.store.FindEdge(ctx, idA, idB); err != nil {
		if !IsNotFound(err) {
			s.log.Error("friendship.lookup.fail", "owner", idA, "friend", idB, "err", err)
		}
		return false
	}
	if _, err := s.store.FindEdge(ctx, idB, idA); err != nil {
		if !IsNotFound(err) {
			s.log.Error("friendship.lookup.fail", "owner", idB, "friend", idA, "err", err)
		}
		return false
	}
	return true
}

// AddFriend creates a single directed edge owner→friend.
// The reciprocal edge is the caller's responsibility; this primitive is
// intentionally one-directional.
func (s *Service) AddFriend(ctx context.Context, ownerID, friendID, displayName string) (Edge, error) {
	ownerID = strings.TrimSpace(ownerID)
	friendID = strings.TrimSpace(friendID)
	if ownerID == "" || friendID == "" {
		return Edge{}, ErrInvalidInput
	}
	return s.store.CreateEdge(ctx, ownerID, friendID, strings.TrimSpace(displayName), time.Now().UTC())
}

// AppendDirectMessage persists a message from sender to recipient, bound to
// the recipient-owned edge pointing back at the sender.
func (s *Service) AppendDirectMessage(ctx context.Context, senderID, recipientID, content string, now time.Time) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrInvalidInput
	}

	edge, err := s.store.FindEdge(ctx, recipientID, senderID)
	if err != nil {
		return Message{}, err
	}
	return s.store.CreateMessage(ctx, content, senderID, edge.ID, now)
}

// FriendsWithLatest lists the owner's edges together with the latest message
// received over each edge (nil when none has arrived yet).
func (s *Service) FriendsWithLatest(ctx context.Context, ownerID string) ([]FriendView, error) {
	edges, err := s.store.ListEdges(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]FriendView, 0, len(edges))
	for _, e := range edges {
		view := FriendView{Edge: e}
		msg, err := s.store.LatestMessage(ctx, e.ID)
		switch {
		case err == nil:
			m := msg
			view.Latest = &m
		case IsNotFound(err):
			// No message yet on this edge.
		default:
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

// ListFriends lists the owner's directed edges.
func (s *Service) ListFriends(ctx context.Context, ownerID string) ([]Edge, error) {
	return s.store.ListEdges(ctx, ownerID)
}
