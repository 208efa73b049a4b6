// Package protocol defines the messages exchanged between the capturing host,
// the emulator core and control clients.
package protocol

import "errors"

var (
	// ErrShortPacket is returned when a UDP packet is truncated
	ErrShortPacket = errors.New("udp: packet too short")

	// ErrUnknownPacket is returned for an unrecognised UDP packet type
	ErrUnknownPacket = errors.New("udp: unknown packet type")
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeCapture is sent by a client to request pointer capture
	TypeCapture MessageType = "capture"

	// TypeUncapture is sent by a client to release pointer capture
	TypeUncapture MessageType = "uncapture"

	// TypeState is sent by the host on connect and after every capture change
	TypeState MessageType = "state"

	// TypeError is sent by the host when a client request failed
	TypeError MessageType = "error"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatePayload is the payload for TypeState
type StatePayload struct {
	Captured bool `json:"captured"`
}

// ErrorPayload is the payload for TypeError
type ErrorPayload struct {
	Request MessageType `json:"request"`
	Error   string      `json:"error"`
}
