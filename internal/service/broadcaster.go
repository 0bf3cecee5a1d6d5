package service

// Event types pushed to websocket clients
const (
	EventTurnChanged       = "turn_changed"
	EventPlaytimeStarted   = "playtime_started"
	EventPlaytimeCompleted = "playtime_completed"
	EventSignalAvailable   = "signal_available"
	EventNotification      = "notification"
	EventPresenceChanged   = "presence_changed"
	EventRosterChanged     = "roster_changed"
	EventRoomClosed        = "room_closed"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgType string, payload interface{})
	BroadcastToUser(roomID, userID string, msgType string, payload interface{})
	// NotifyUser reaches every connection of userID regardless of room.
	NotifyUser(userID string, msgType string, payload interface{})
	DisconnectRoom(roomID string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToRoom(string, string, interface{})         {}
func (nopBroadcaster) BroadcastToUser(string, string, string, interface{}) {}
func (nopBroadcaster) NotifyUser(string, string, interface{})              {}
func (nopBroadcaster) DisconnectRoom(string)                               {}
