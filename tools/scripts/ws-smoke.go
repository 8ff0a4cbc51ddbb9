// Package main provides a CI-friendly WebSocket smoke test for the courier
// live channel.
//
// It validates:
//   - handshake + subprotocol selection
//   - login announcement for two identities
//   - message -> new_msg delivery to the recipient
//   - silence on the sender side (no ack, no error)
//
// The two identities must already exist and be mutual friends; see -user-a /
// -user-b. Without friendship the relay drops the send and the tool reports a
// delivery timeout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"courier/internal/relay"

	"github.com/coder/websocket"
)

const (
	defaultSubprotocol = "courier.v1"
	maxReadBytes       = 1 << 20 // 1MiB
)

type smokeClient struct {
	name     string
	identity string
	conn     *websocket.Conn

	inbox chan relay.Envelope
	errCh chan error
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		userA   = flag.String("user-a", "", "Sender identity (user ID)")
		userB   = flag.String("user-b", "", "Recipient identity (user ID)")
		tokenA  = flag.String("token-a", "", "Optional access token announced by the sender")
		tokenB  = flag.String("token-b", "", "Optional access token announced by the recipient")
		text    = flag.String("text", "hello courier", "Message text to send")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}
	if strings.TrimSpace(*userA) == "" || strings.TrimSpace(*userB) == "" {
		fatalf("-user-a and -user-b are required")
	}

	root := context.Background()

	a := mustConnect(root, "A", *wsURL, *origin, *timeout)
	defer closeWS(a.conn)

	b := mustConnect(root, "B", *wsURL, *origin, *timeout)
	defer closeWS(b.conn)

	mustLogin(root, a, *userA, *tokenA, *timeout)
	mustLogin(root, b, *userB, *tokenB, *timeout)

	if *verbose {
		fmt.Printf("connected: A=%s B=%s origin=%q\n", a.identity, b.identity, *origin)
	}

	// Give the server a beat to register both presences before sending.
	time.Sleep(250 * time.Millisecond)

	mustSend(root, a, *userB, *text, *timeout)
	mustAssertDelivery(root, b, *userA, *userB, *text, *timeout)

	// The wire contract is fire-and-forget: the sender hears nothing back.
	mustAssertNoType(root, a, relay.TypeNewMessage, 1200*time.Millisecond)
	mustAssertNoType(root, a, relay.TypeError, 250*time.Millisecond)

	fmt.Printf("OK: A=%s B=%s delivered=%q\n", a.identity, b.identity, *text)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, wsURL, origin string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	assertSubprotocol(resp, defaultSubprotocol)

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:  name,
		conn:  conn,
		inbox: make(chan relay.Envelope, 512),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()
	return c
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}

			if mt != websocket.MessageText && mt != websocket.MessageBinary {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			var env relay.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad json: %w", err):
				default:
				}
				return
			}
			if strings.TrimSpace(env.Type) == "" {
				select {
				case c.errCh <- errors.New("envelope missing type"):
				default:
				}
				return
			}

			select {
			case c.inbox <- env:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func mustLogin(parent context.Context, c *smokeClient, identity, token string, stepTimeout time.Duration) {
	c.identity = identity
	env := relay.Envelope{
		Type: relay.TypeLogin,
		Payload: mustJSON(relay.LoginPayload{
			Identity: identity,
			Token:    token,
		}),
	}
	mustWriteWithTimeout(parent, c.conn, env, stepTimeout)
}

func mustSend(parent context.Context, c *smokeClient, to, text string, stepTimeout time.Duration) {
	env := relay.Envelope{
		Type: relay.TypeMessage,
		Payload: mustJSON(relay.SendPayload{
			To:      to,
			Message: text,
		}),
	}
	mustWriteWithTimeout(parent, c.conn, env, stepTimeout)
}

func mustAssertDelivery(parent context.Context, c *smokeClient, senderID, room, text string, stepTimeout time.Duration) {
	env := c.mustReadUntilType(parent, relay.TypeNewMessage, stepTimeout)

	var p relay.NewMessagePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		fatalf("unmarshal new_msg payload (%s): %v", c.name, err)
	}

	if p.From.SenderID != senderID {
		fatalf("new_msg sender mismatch (%s): got=%q want=%q", c.name, p.From.SenderID, senderID)
	}
	if p.From.Room != room {
		fatalf("new_msg room mismatch (%s): got=%q want=%q", c.name, p.From.Room, room)
	}
	if strings.TrimSpace(p.From.SenderConnID) == "" {
		fatalf("new_msg missing sender conn id (%s)", c.name)
	}
	if p.Message != text {
		fatalf("new_msg text mismatch (%s): got=%q want=%q", c.name, p.Message, text)
	}
}

func mustAssertNoType(parent context.Context, c *smokeClient, forbiddenType string, wait time.Duration) {
	ctx, cancel := context.WithTimeout(parent, wait)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed unexpectedly (%s)", c.name)
			}
			fatalf("connection closed unexpectedly (%s): %v", c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed unexpectedly (%s)", c.name)
			}
			if env.Type == relay.TypeError {
				var ep relay.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
			if env.Type == forbiddenType {
				fatalf("unexpected %s received (%s)", forbiddenType, c.name)
			}
		}
	}
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration) relay.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == relay.TypeError {
				var ep relay.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
		}
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env relay.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
