package relay

import (
	"encoding/json"
	"errors"
	"strings"
)

// Wire event types. Inbound events form a closed set decoded at the boundary;
// unknown types are rejected rather than interpreted.
const (
	// TypeLogin announces the connection's identity (the "login" socket event).
	TypeLogin = "login"

	// TypeMessage asks the relay to forward content to another identity.
	TypeMessage = "message"

	// TypeNewMessage is the outbound delivery event.
	TypeNewMessage = "new_msg"

	// TypeError reports a protocol-level problem (bad JSON, bad envelope).
	// Relay authorization and persistence failures are never reported here.
	TypeError = "error"
)

// Envelope is the wire frame for all live-channel events.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LoginPayload announces the durable identity behind a connection.
//
// Token is optional: when present it is verified and a mismatch against the
// announced identity is logged, but the binding itself always uses Identity.
// The live channel does not re-verify tokens after the login handshake.
type LoginPayload struct {
	Identity string `json:"identity"`
	Token    string `json:"token,omitempty"`
}

// SendPayload carries one message send request.
type SendPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewMessageFrom identifies the sender of a delivered message.
type NewMessageFrom struct {
	SenderConnID string `json:"senderConnId"`
	SenderID     string `json:"senderId"`
	Room         string `json:"room"`
}

// NewMessagePayload is the delivery event pushed to the recipient.
type NewMessagePayload struct {
	From    NewMessageFrom `json:"from"`
	Message string         `json:"message"`
}

// ErrorPayload reports a protocol error to the peer.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validate checks the envelope's structural invariants.
func (e Envelope) Validate() error {
	switch strings.TrimSpace(e.Type) {
	case "":
		return errors.New("missing type")
	case TypeLogin, TypeMessage:
		if len(e.Payload) == 0 {
			return errors.New("missing payload")
		}
		return nil
	default:
		return errors.New("unsupported type: " + e.Type)
	}
}

func newEnvelope(typ string, payload any) Envelope {
	raw, _ := json.Marshal(payload)
	return Envelope{Type: typ, Payload: raw}
}
