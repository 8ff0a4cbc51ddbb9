package relay

import (
	"context"
	"log/slog"
	"time"

	"courier/internal/friendship"
)

// Authorizer decides whether two identities may exchange messages.
// A false answer is a normal negative result, never an error.
type Authorizer interface {
	AreMutualFriends(ctx context.Context, idA, idB string) bool
}

// MessageAppender persists one direct message bound to the recipient-owned
// friendship edge.
type MessageAppender interface {
	AppendDirectMessage(ctx context.Context, senderID, recipientID, content string, now time.Time) (friendship.Message, error)
}

// DropReason classifies why the relay discarded a send.
type DropReason string

const (
	DropUnknownSender DropReason = "unknown_sender"
	DropUnauthorized  DropReason = "unauthorized"
	DropPersistence   DropReason = "persistence"
)

// DropHook observes silent drops. The wire contract surfaces nothing to the
// sender on these paths; the hook exists so deployments can add visibility
// without changing wire behavior.
type DropHook func(reason DropReason, senderConnID, senderID, recipientID string)

// Relay runs the per-message pipeline: resolve sender from presence, check
// mutual friendship, persist, then forward to the recipient's live connection
// if one exists.
type Relay struct {
	log      *slog.Logger
	presence *Registry
	authz    Authorizer
	store    MessageAppender
	metrics  *Metrics
	hook     DropHook
}

// Option configures optional Relay behavior.
type Option func(*Relay)

// WithDropHook installs a drop observer.
func WithDropHook(hook DropHook) Option {
	return func(r *Relay) {
		if hook != nil {
			r.hook = hook
		}
	}
}

// WithMetrics installs relay counters.
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRelay constructs a Relay.
func NewRelay(log *slog.Logger, presence *Registry, authz Authorizer, store MessageAppender, opts ...Option) *Relay {
	if log == nil {
		log = slog.Default()
	}
	r := &Relay{
		log:      log,
		presence: presence,
		authz:    authz,
		store:    store,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Presence exposes the registry backing this relay.
func (r *Relay) Presence() *Registry { return r.presence }

// HandleSend processes one inbound message event, terminal in one hop.
//
// Ordering invariant: a message is never forwarded before it is persisted.
// Authorization and persistence failures drop the message silently (log,
// metrics, hook); no error reaches the sender.
func (r *Relay) HandleSend(ctx context.Context, sender *Client, recipientID, content string, now time.Time) {
	if sender == nil || recipientID == "" || content == "" {
		return
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Resolve sender: the identity announced on this connection earlier.
	senderID, ok := r.presence.IdentityFor(sender.ConnID)
	if !ok {
		r.drop(DropUnknownSender, sender.ConnID, "", recipientID)
		return
	}

	// Authorize: both directed edges must exist, evaluated per message.
	if !r.authz.AreMutualFriends(ctx, senderID, recipientID) {
		r.drop(DropUnauthorized, sender.ConnID, senderID, recipientID)
		return
	}

	// Persist before delivery; an unpersisted message is never forwarded.
	if _, err := r.store.AppendDirectMessage(ctx, senderID, recipientID, content, now); err != nil {
		r.log.Error("relay.persist.fail", "sender", senderID, "recipient", recipientID, "err", err)
		r.drop(DropPersistence, sender.ConnID, senderID, recipientID)
		return
	}

	// Deliver if the recipient has a live connection; otherwise the message
	// stays persisted and waits for the next full-state fetch.
	target, ok := r.presence.Lookup(recipientID)
	if !ok {
		if r.metrics != nil {
			r.metrics.StoredOffline.Inc()
		}
		r.log.Debug("relay.recipient.offline", "sender", senderID, "recipient", recipientID)
		return
	}

	env := newEnvelope(TypeNewMessage, NewMessagePayload{
		From: NewMessageFrom{
			SenderConnID: sender.ConnID,
			SenderID:     senderID,
			Room:         recipientID,
		},
		Message: content,
	})

	if r.enqueue(ctx, target, env) {
		if r.metrics != nil {
			r.metrics.Delivered.Inc()
		}
		return
	}

	// Recipient queue full or shutting down; the message is already durable.
	if r.metrics != nil {
		r.metrics.StoredOffline.Inc()
	}
	r.log.Info("relay.deliver.skipped", "recipient", recipientID, "conn_id", target.ConnID)
}

func (r *Relay) enqueue(ctx context.Context, c *Client, env Envelope) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.Done():
		return false
	case c.Send <- env:
		return true
	default:
		return false
	}
}

func (r *Relay) drop(reason DropReason, senderConnID, senderID, recipientID string) {
	switch reason {
	case DropUnknownSender:
		if r.metrics != nil {
			r.metrics.DropUnknownSender.Inc()
		}
		r.log.Info("relay.drop.unknown_sender", "conn_id", senderConnID, "recipient", recipientID)
	case DropUnauthorized:
		if r.metrics != nil {
			r.metrics.DropUnauthorized.Inc()
		}
		r.log.Info("relay.drop.unauthorized", "sender", senderID, "recipient", recipientID)
	case DropPersistence:
		if r.metrics != nil {
			r.metrics.DropPersistence.Inc()
		}
	}

	if r.hook != nil {
		r.hook(reason, senderConnID, senderID, recipientID)
	}
}
