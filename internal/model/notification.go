package model

import "time"

type NotificationKind string

const (
	KindJoinRequest       NotificationKind = "request"
	KindAccepted          NotificationKind = "accepted"
	KindQuit              NotificationKind = "quit"
	KindRemoved           NotificationKind = "removed"
	KindOwnershipTransfer NotificationKind = "ownership_transfer"
	KindRejected          NotificationKind = "reject"
)

// NotificationBody is the kind-specific part of a notification. Each
// kind has exactly one body type.
type NotificationBody interface {
	Kind() NotificationKind
}

type JoinRequested struct {
	RoomID      string `json:"roomId" bson:"roomId"`
	RequesterID string `json:"requesterId" bson:"requesterId"`
}

type JoinAccepted struct {
	RoomID string `json:"roomId" bson:"roomId"`
}

type PlayerQuit struct {
	RoomID   string `json:"roomId" bson:"roomId"`
	PlayerID string `json:"playerId" bson:"playerId"`
}

type PlayerRemoved struct {
	RoomID string `json:"roomId" bson:"roomId"`
}

type OwnershipTransferred struct {
	RoomID         string `json:"roomId" bson:"roomId"`
	PreviousHostID string `json:"previousHostId" bson:"previousHostId"`
}

type JoinRejected struct {
	RoomID string `json:"roomId" bson:"roomId"`
}

func (JoinRequested) Kind() NotificationKind        { return KindJoinRequest }
func (JoinAccepted) Kind() NotificationKind         { return KindAccepted }
func (PlayerQuit) Kind() NotificationKind           { return KindQuit }
func (PlayerRemoved) Kind() NotificationKind        { return KindRemoved }
func (OwnershipTransferred) Kind() NotificationKind { return KindOwnershipTransfer }
func (JoinRejected) Kind() NotificationKind         { return KindRejected }

// Notification is addressed from CreatorID to ReceiverID.
type Notification struct {
	ID         string           `json:"id"`
	CreatorID  string           `json:"creatorId"`
	ReceiverID string           `json:"receiverId"`
	Read       bool             `json:"read"`
	Kind       NotificationKind `json:"kind"`
	Body       NotificationBody `json:"body"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// NewNotification stamps the kind from the body so the two never disagree.
func NewNotification(id, creatorID, receiverID string, body NotificationBody, at time.Time) *Notification {
	return &Notification{
		ID:         id,
		CreatorID:  creatorID,
		ReceiverID: receiverID,
		Kind:       body.Kind(),
		Body:       body,
		CreatedAt:  at,
	}
}

// RoomIDOf returns the room a notification body refers to.
func RoomIDOf(body NotificationBody) string {
	switch b := body.(type) {
	case JoinRequested:
		return b.RoomID
	case JoinAccepted:
		return b.RoomID
	case PlayerQuit:
		return b.RoomID
	case PlayerRemoved:
		return b.RoomID
	case OwnershipTransferred:
		return b.RoomID
	case JoinRejected:
		return b.RoomID
	}
	return ""
}
