// Package api defines the signaling protocol spoken between clients and the signaling server.
//
// Each message is a JSON-encoded "packet" of the following structure:
//
//	t - (required) one of the predefined packet types;
//	p - (optional) packet payload with arbitrary data.
//
// The packet type selects the payload structure, so the payload is unwrapped
// in a second pass after the type is known.
//
// Example:
//
//	{"t":"join-room","p":{"roomId":"r1","userId":"a","username":"Alice"}}
package api

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"
)

// PT is a packet type.
type PT string

// Client to server.
const (
	UserConnect PT = "user-connect"
	JoinRoom    PT = "join-room"
	LeaveRoom   PT = "leave-room"
)

// Both directions.
const Signal PT = "signal"

// Server to client.
const (
	RoomJoined       PT = "room-joined"
	UserJoined       PT = "user-joined"
	UserLeft         PT = "user-left"
	RoomParticipants PT = "room-participants"
	Error            PT = "error"
)

func (p PT) String() string { return string(p) }

type In struct {
	T       PT              `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"` // should be json.RawMessage for 2-pass unmarshal
}

type Out struct {
	T       PT  `json:"t"`
	Payload any `json:"p,omitempty"`
}

var (
	ErrMalformed = errors.New("malformed")
	ErrEmpty     = errors.New("empty payload")
)

// Unwrap decodes a packet payload into T, nil on failure.
func Unwrap[T any](data []byte) *T {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil
	}
	return out
}

// UnwrapChecked is like Unwrap but reports why the payload is not usable.
func UnwrapChecked[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	return out, nil
}

// Decode parses a raw frame into a packet.
func Decode(frame []byte) (In, error) {
	var in In
	if err := json.Unmarshal(frame, &in); err != nil {
		return in, errors.Join(ErrMalformed, err)
	}
	if in.T == "" {
		return in, ErrMalformed
	}
	return in, nil
}

// Encode serializes a packet into a frame.
func Encode(t PT, payload any) ([]byte, error) { return json.Marshal(Out{T: t, Payload: payload}) }

// Frame wraps an already encoded payload into a packet without touching its bytes.
func Frame(t PT, raw []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(raw) + len(t) + 14)
	b.WriteString(`{"t":"`)
	b.WriteString(string(t))
	b.WriteByte('"')
	if len(raw) > 0 {
		b.WriteString(`,"p":`)
		b.Write(raw)
	}
	b.WriteByte('}')
	return b.Bytes()
}
