package model

import (
	"encoding/json"
	"time"
)

// SignalType is the kind of WebRTC negotiation message being relayed.
type SignalType string

const (
	SignalOffer  SignalType = "offer"
	SignalAnswer SignalType = "answer"
	SignalICE    SignalType = "ice"
)

func (t SignalType) Valid() bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalICE:
		return true
	}
	return false
}

// Signal is a write-once handshake message addressed to one peer.
type Signal struct {
	ID         string          `json:"id"`
	RoomID     string          `json:"roomId"`
	FromUserID string          `json:"fromUserId"`
	ToUserID   string          `json:"toUserId"`
	Type       SignalType      `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// MarshalJSON adds createdAtMs, the unit the poll "since" parameter takes.
func (s Signal) MarshalJSON() ([]byte, error) {
	type plain Signal
	return json.Marshal(struct {
		plain
		CreatedAtMs int64 `json:"createdAtMs"`
	}{plain(s), s.CreatedAt.UnixMilli()})
}

// SendSignalRequest is the body of a send call; the sender comes from auth.
type SendSignalRequest struct {
	To      string          `json:"to"`
	Type    SignalType      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SweepResult reports how many expired signals a sweep removed.
type SweepResult struct {
	DeletedCount int64 `json:"deletedCount"`
}
