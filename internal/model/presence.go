package model

import "time"

// Presence is a user's liveness and audio state inside a room.
type Presence struct {
	RoomID         string    `json:"roomId"`
	UserID         string    `json:"userId"`
	IsOnline       bool      `json:"isOnline"`
	IsSpeaking     bool      `json:"isSpeaking"`
	MicEnabled     bool      `json:"micEnabled"`
	SpeakerEnabled bool      `json:"speakerEnabled"`
	LastSeen       time.Time `json:"lastSeen"`
}

// PresenceUpdate is a heartbeat; nil fields keep their previous value.
type PresenceUpdate struct {
	IsOnline       *bool `json:"isOnline,omitempty"`
	IsSpeaking     *bool `json:"isSpeaking,omitempty"`
	MicEnabled     *bool `json:"micEnabled,omitempty"`
	SpeakerEnabled *bool `json:"speakerEnabled,omitempty"`
}
