// Package relay implements courier's live-message core: the presence registry
// binding durable identities to live connections, and the authorize → persist
// → deliver pipeline applied to each inbound message.
package relay

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Client represents one live connection.
//
// Send is intentionally never closed by the server so concurrent deliverers
// cannot panic on a closed channel; done signals goroutines to stop instead.
type Client struct {
	ConnID string
	Send   chan Envelope

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(connID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ConnID: connID,
		Send:   make(chan Envelope, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Done returns a channel closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent).
// It does NOT close Send to keep delivery safe under concurrency.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// NewConnID returns a random hex connection handle (32 chars).
func NewConnID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

// Registry is the process-wide presence map: durable identity to the single
// most-recently-announced live connection, plus the inverse mapping needed to
// resolve who disconnected.
//
// It is the one piece of shared mutable state in the core; all access is
// serialized by a single mutex, and no lock is ever held across I/O.
type Registry struct {
	mu         sync.Mutex
	byIdentity map[string]*Client
	byConn     map[string]string // conn id -> identity
}

// NewRegistry constructs an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]*Client),
		byConn:     make(map[string]string),
	}
}

// Announce binds identity to the given client, overwriting any prior entry
// for that identity. The previous holder is not notified or closed; its
// eventual disconnect will be a no-op against the newer entry.
func (r *Registry) Announce(identity string, c *Client) {
	if identity == "" || c == nil || c.ConnID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byIdentity[identity] = c
	r.byConn[c.ConnID] = identity
}

// Lookup returns the live connection for identity, if one is registered.
func (r *Registry) Lookup(identity string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byIdentity[identity]
	return c, ok
}

// IdentityFor resolves the identity a connection announced, if any.
// Connections that never announced cannot send as anyone.
func (r *Registry) IdentityFor(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byConn[connID]
	return id, ok
}

// Remove drops the presence entry for the given connection handle.
//
// The identity slot is cleared only when it still points at this exact
// connection: if the identity re-announced from a newer connection, that
// newer entry must survive a late Remove from the old one.
func (r *Registry) Remove(connID string) {
	if connID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)

	if current, ok := r.byIdentity[identity]; ok && current.ConnID == connID {
		delete(r.byIdentity, identity)
	}
}

// Len reports how many identities currently have a live connection.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byIdentity)
}
