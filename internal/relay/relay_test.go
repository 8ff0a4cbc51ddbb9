package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"courier/internal/friendship"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testHarness wires a relay against the in-memory friendship store.
type testHarness struct {
	relay *Relay
	reg   *Registry
	svc   *friendship.Service
	store *friendship.MemoryStore
	drops []DropReason
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	store := friendship.NewMemoryStore()
	svc := friendship.NewService(testLogger(), store)
	reg := NewRegistry()

	h := &testHarness{reg: reg, svc: svc, store: store}
	h.relay = NewRelay(testLogger(), reg, svc, svc,
		WithDropHook(func(reason DropReason, _, _, _ string) {
			h.drops = append(h.drops, reason)
		}),
	)
	return h
}

func (h *testHarness) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.svc.AddFriend(ctx, a, b, b); err != nil {
		t.Fatalf("AddFriend(%s,%s): %v", a, b, err)
	}
	if _, err := h.svc.AddFriend(ctx, b, a, a); err != nil {
		t.Fatalf("AddFriend(%s,%s): %v", b, a, err)
	}
}

func (h *testHarness) messagesBetween(t *testing.T, sender, recipient string) []friendship.Message {
	t.Helper()
	ctx := context.Background()
	edge, err := h.store.FindEdge(ctx, recipient, sender)
	if err != nil {
		if friendship.IsNotFound(err) {
			return nil
		}
		t.Fatalf("FindEdge: %v", err)
	}
	msgs, err := h.store.MessagesOnEdge(ctx, edge.ID)
	if err != nil {
		t.Fatalf("MessagesOnEdge: %v", err)
	}
	return msgs
}

func drainOne(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case env := <-c.Send:
		return env
	default:
		t.Fatalf("expected a queued delivery on %s", c.ConnID)
		return Envelope{}
	}
}

func TestRelay_DeliversToLiveRecipient(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.befriend(t, "alice", "bob")

	senderConn := NewClient("conn-a", 8)
	recvConn := NewClient("conn-b", 8)
	h.reg.Announce("alice", senderConn)
	h.reg.Announce("bob", recvConn)

	h.relay.HandleSend(ctx, senderConn, "bob", "hi", time.Now().UTC())

	env := drainOne(t, recvConn)
	if env.Type != TypeNewMessage {
		t.Fatalf("unexpected type: %q", env.Type)
	}
	var p NewMessagePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Message != "hi" || p.From.SenderID != "alice" || p.From.SenderConnID != "conn-a" {
		t.Fatalf("unexpected payload: %+v", p)
	}

	msgs := h.messagesBetween(t, "alice", "bob")
	if len(msgs) != 1 || msgs[0].Content != "hi" || msgs[0].SenderID != "alice" {
		t.Fatalf("unexpected persisted messages: %+v", msgs)
	}
	if len(h.drops) != 0 {
		t.Fatalf("unexpected drops: %v", h.drops)
	}
}

func TestRelay_OfflineRecipientStillPersists(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.befriend(t, "alice", "bob")

	senderConn := NewClient("conn-a", 8)
	h.reg.Announce("alice", senderConn)

	h.relay.HandleSend(ctx, senderConn, "bob", "hello?", time.Now().UTC())

	msgs := h.messagesBetween(t, "alice", "bob")
	if len(msgs) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(msgs))
	}
	if len(h.drops) != 0 {
		t.Fatalf("offline delivery is not a drop: %v", h.drops)
	}
}

func TestRelay_NonMutualPairDropsSilently(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// Only one directed edge: alice added carol, carol never reciprocated.
	if _, err := h.svc.AddFriend(ctx, "alice", "carol", "carol"); err != nil {
		t.Fatalf("AddFriend: %v", err)
	}

	senderConn := NewClient("conn-a", 8)
	recvConn := NewClient("conn-c", 8)
	h.reg.Announce("alice", senderConn)
	h.reg.Announce("carol", recvConn)

	h.relay.HandleSend(ctx, senderConn, "carol", "psst", time.Now().UTC())

	select {
	case env := <-recvConn.Send:
		t.Fatalf("carol must receive nothing, got %+v", env)
	default:
	}
	if msgs := h.messagesBetween(t, "alice", "carol"); len(msgs) != 0 {
		t.Fatalf("no message row may exist for a non-mutual pair: %+v", msgs)
	}
	if len(h.drops) != 1 || h.drops[0] != DropUnauthorized {
		t.Fatalf("expected one unauthorized drop, got %v", h.drops)
	}
}

func TestRelay_UnannouncedConnectionCannotSend(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.befriend(t, "alice", "bob")

	recvConn := NewClient("conn-b", 8)
	h.reg.Announce("bob", recvConn)

	// This connection never announced; it has no identity to send as.
	stranger := NewClient("conn-x", 8)
	h.relay.HandleSend(ctx, stranger, "bob", "hi", time.Now().UTC())

	if msgs := h.messagesBetween(t, "alice", "bob"); len(msgs) != 0 {
		t.Fatalf("unexpected persisted messages: %+v", msgs)
	}
	if len(h.drops) != 1 || h.drops[0] != DropUnknownSender {
		t.Fatalf("expected one unknown-sender drop, got %v", h.drops)
	}
}

type failingAppender struct{}

func (failingAppender) AppendDirectMessage(context.Context, string, string, string, time.Time) (friendship.Message, error) {
	return friendship.Message{}, context.DeadlineExceeded
}

func TestRelay_PersistenceFailureNeverDelivers(t *testing.T) {
	ctx := context.Background()

	store := friendship.NewMemoryStore()
	svc := friendship.NewService(testLogger(), store)
	reg := NewRegistry()

	var drops []DropReason
	r := NewRelay(testLogger(), reg, svc, failingAppender{},
		WithDropHook(func(reason DropReason, _, _, _ string) {
			drops = append(drops, reason)
		}),
	)

	if _, err := svc.AddFriend(ctx, "alice", "bob", "bob"); err != nil {
		t.Fatalf("AddFriend: %v", err)
	}
	if _, err := svc.AddFriend(ctx, "bob", "alice", "alice"); err != nil {
		t.Fatalf("AddFriend: %v", err)
	}

	senderConn := NewClient("conn-a", 8)
	recvConn := NewClient("conn-b", 8)
	reg.Announce("alice", senderConn)
	reg.Announce("bob", recvConn)

	r.HandleSend(ctx, senderConn, "bob", "hi", time.Now().UTC())

	select {
	case env := <-recvConn.Send:
		t.Fatalf("persistence failed; nothing may be forwarded, got %+v", env)
	default:
	}
	if len(drops) != 1 || drops[0] != DropPersistence {
		t.Fatalf("expected one persistence drop, got %v", drops)
	}
}

func TestRelay_ExactlyOneDeliveryPerSend(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.befriend(t, "alice", "bob")

	senderConn := NewClient("conn-a", 8)
	recvConn := NewClient("conn-b", 8)
	h.reg.Announce("alice", senderConn)
	h.reg.Announce("bob", recvConn)

	h.relay.HandleSend(ctx, senderConn, "bob", "one", time.Now().UTC())
	h.relay.HandleSend(ctx, senderConn, "bob", "two", time.Now().UTC())

	first := drainOne(t, recvConn)
	second := drainOne(t, recvConn)
	if first.Type != TypeNewMessage || second.Type != TypeNewMessage {
		t.Fatalf("unexpected envelope types: %q, %q", first.Type, second.Type)
	}
	select {
	case env := <-recvConn.Send:
		t.Fatalf("no third delivery expected, got %+v", env)
	default:
	}
}
