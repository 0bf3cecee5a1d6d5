package model

import "time"

type RoomVisibility string

const (
	RoomPublic  RoomVisibility = "public"
	RoomPrivate RoomVisibility = "private"
)

type SkipBehaviour string

const (
	SkipNew  SkipBehaviour = "new"
	SkipPass SkipBehaviour = "pass"
)

type RoomSettings struct {
	NumberOfRiddles int           `json:"numberOfRiddles" bson:"numberOfRiddles"`
	RiddleTimeSpan  int           `json:"riddleTimeSpan" bson:"riddleTimeSpan"` // seconds per riddle
	Category        string        `json:"category" bson:"category"`
	SkipBehaviour   SkipBehaviour `json:"skipBehaviour" bson:"skipBehaviour"`
}

type Room struct {
	ID         string         `json:"id" bson:"_id"`
	Code       string         `json:"code" bson:"code"`
	Name       string         `json:"name,omitempty" bson:"name,omitempty"`
	HostID     string         `json:"hostId" bson:"hostId"`
	Visibility RoomVisibility `json:"visibility" bson:"visibility"`
	MaxPlayers int            `json:"maxPlayers" bson:"maxPlayers"`
	StartUser  string         `json:"startUser,omitempty" bson:"startUser,omitempty"`
	PlaytimeID string         `json:"playtimeId,omitempty" bson:"playtimeId,omitempty"`
	Playing    bool           `json:"playing" bson:"playing"`
	Settings   *RoomSettings  `json:"settings,omitempty" bson:"settings,omitempty"`
	CreatedAt  time.Time      `json:"createdAt" bson:"createdAt"`
}

// RoomPlayer is a membership row. JoinIndex is assigned at join time as
// the number of players already in the room.
type RoomPlayer struct {
	ID        string    `json:"id" bson:"_id"`
	RoomID    string    `json:"roomId" bson:"roomId"`
	UserID    string    `json:"userId" bson:"userId"`
	Ready     bool      `json:"ready" bson:"ready"`
	JoinIndex int       `json:"joinIndex" bson:"joinIndex"`
	JoinedAt  time.Time `json:"joinedAt" bson:"joinedAt"`
}

// RosterEntry is one slot of the turn order.
type RosterEntry struct {
	UserID    string `json:"userId" bson:"userId"`
	JoinIndex int    `json:"joinIndex" bson:"joinIndex"`
}

type CreateRoomRequest struct {
	Name       string         `json:"name"`
	Visibility RoomVisibility `json:"visibility"`
	MaxPlayers int            `json:"maxPlayers"`
}

// RoomView is a room with its member counts.
type RoomView struct {
	Room
	ReadyPlayers    int `json:"readyPlayers"`
	AcceptedPlayers int `json:"acceptedPlayers"`
}

// JoinStatus is the outcome of a join call.
type JoinStatus string

const (
	JoinStatusJoined    JoinStatus = "joined"
	JoinStatusRequested JoinStatus = "requested"
	JoinStatusMember    JoinStatus = "member"
)

type JoinResult struct {
	Status JoinStatus  `json:"status"`
	Player *RoomPlayer `json:"player,omitempty"`
}
