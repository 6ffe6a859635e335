// Package wire implements the chat server's framed message format.
//
// Every frame is a JSON object with a string "type" and an object "data".
// Outbound frames are built with the constructors in messages.go; inbound
// frames are decoded into Message and their data lazily unmarshalled into
// the typed payloads in payloads.go.
package wire

import (
	"encoding/json"
	"fmt"
)

// Message is a single frame on the chat stream.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses a raw frame. A frame without a type or without a data
// object is rejected.
func Decode(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("wire: decode frame: %w", err)
	}
	if m.Type == "" || m.Data == nil {
		return Message{}, fmt.Errorf("wire: invalid frame structure")
	}
	return m, nil
}

// Encode serializes a frame for the socket.
func (m Message) Encode() ([]byte, error) {
	if m.Data == nil {
		m.Data = json.RawMessage("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: encode frame: %w", err)
	}
	return b, nil
}

// DecodeData unmarshals the frame payload into v.
func (m Message) DecodeData(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("wire: decode %q data: %w", m.Type, err)
	}
	return nil
}

func mustData(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable with a broken constructor, never with user input.
		panic(fmt.Sprintf("wire: marshal data: %v", err))
	}
	return b
}
