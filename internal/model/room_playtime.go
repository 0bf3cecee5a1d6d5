package model

import "time"

// PlayEntry is one immutable line of a room playtime's audit log.
// TurnIndex is the log length at the time of the append.
type PlayEntry struct {
	RiddleID  string    `json:"riddleId" bson:"riddleId"`
	PlayedBy  string    `json:"playedBy" bson:"playedBy"`
	TurnIndex int       `json:"turnIndex" bson:"turnIndex"`
	Result    Outcome   `json:"result" bson:"result"`
	PlayedAt  time.Time `json:"playedAt" bson:"playedAt"`
}

// RoomPlaytime is a multi-player session: riddles are answered in order
// while the turn rotates through the room's ready roster.
type RoomPlaytime struct {
	ID      string      `json:"id" bson:"_id"`
	RoomID  string      `json:"roomId" bson:"roomId"`
	Riddles []RiddleRef `json:"riddles" bson:"riddles"`
	Play    []PlayEntry `json:"play" bson:"play"`

	Playing   bool `json:"playing" bson:"playing"`
	Completed bool `json:"completed" bson:"completed"`

	PreviousRiddle string `json:"previousRiddle,omitempty" bson:"previousRiddle,omitempty"`
	CurrentRiddle  string `json:"currentRiddle,omitempty" bson:"currentRiddle,omitempty"`
	NextRiddle     string `json:"nextRiddle,omitempty" bson:"nextRiddle,omitempty"`

	PreviousUser string `json:"previousUser,omitempty" bson:"previousUser,omitempty"`
	CurrentUser  string `json:"currentUser,omitempty" bson:"currentUser,omitempty"`
	NextUser     string `json:"nextUser,omitempty" bson:"nextUser,omitempty"`

	SecondsPerRiddle int        `json:"secondsPerRiddle" bson:"secondsPerRiddle"`
	TurnDeadline     *time.Time `json:"turnDeadline,omitempty" bson:"turnDeadline,omitempty"`

	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserPointers is the turn-order pointer triple.
type UserPointers struct {
	PreviousUser string `json:"previousUser,omitempty"`
	CurrentUser  string `json:"currentUser,omitempty"`
	NextUser     string `json:"nextUser,omitempty"`
}

// RoomAdvanceResult is returned after a room advance.
type RoomAdvanceResult struct {
	PreviousUser   string `json:"previousUser,omitempty"`
	CurrentUser    string `json:"currentUser,omitempty"`
	NextUser       string `json:"nextUser,omitempty"`
	PreviousRiddle string `json:"previousRiddle,omitempty"`
	CurrentRiddle  string `json:"currentRiddle,omitempty"`
	NextRiddle     string `json:"nextRiddle,omitempty"`
	Completed      bool   `json:"completed"`
}

// CreateRoomPlaytimeRequest creates a room playtime from known riddle IDs.
type CreateRoomPlaytimeRequest struct {
	RoomID    string   `json:"roomId"`
	RiddleIDs []string `json:"riddleIds"`
}

// StartRoomPlaytimeRequest starts a room playtime. An empty Roster means
// the room's current ready roster is used.
type StartRoomPlaytimeRequest struct {
	Roster             []RosterEntry `json:"roster,omitempty"`
	PreferredStartUser string        `json:"preferredStartUser,omitempty"`
}

// ScoreCard is the per-player reduction of a play log.
type ScoreCard struct {
	PlayerID  string `json:"playerId,omitempty"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
	Skipped   int    `json:"skipped"`
	TimedOut  int    `json:"timedOut"`
	Total     int    `json:"total"`
}
