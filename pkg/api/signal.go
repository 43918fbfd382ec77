package api

import "github.com/goccy/go-json"

type SignalType string

const (
	Offer     SignalType = "offer"
	Answer    SignalType = "answer"
	Candidate SignalType = "candidate"
	Hangup    SignalType = "hangup"
)

// SignalRequest is a negotiation message.
// Data is opaque for the server, clients put SDP or ICE candidates there.
type SignalRequest struct {
	Type   SignalType      `json:"type"`
	From   string          `json:"from"`
	To     string          `json:"to,omitempty"`
	RoomId string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// SignalRoute is the part of a signal the relay needs to route it.
type SignalRoute struct {
	From   string `json:"from"`
	To     string `json:"to,omitempty"`
	RoomId string `json:"roomId,omitempty"`
}

func (s SignalRoute) IsDirect() bool { return s.To != "" }
func (s SignalRoute) IsRoom() bool   { return s.To == "" && s.RoomId != "" }
