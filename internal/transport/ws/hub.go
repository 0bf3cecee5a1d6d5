package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client message types
const (
	MsgHeartbeat MessageType = "heartbeat"
	MsgError     MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub fans service events out to the sockets of a room. It implements
// service.Broadcaster.
type Hub struct {
	// roomID -> userID -> conn
	rooms map[string]map[string]*Connection

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	closeRoom  chan string
}

// Connection is one user's socket inside one room.
type Connection struct {
	RoomID string
	UserID string
	Send   chan []byte
	Hub    *Hub
}

// BroadcastMessage is a message to broadcast. An empty RoomID with a
// ToUser sends to that user in every room.
type BroadcastMessage struct {
	RoomID  string
	ToUser  string // empty means everyone in RoomID
	Message *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		rooms:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		closeRoom:  make(chan string, 16),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.rooms[conn.RoomID] == nil {
				h.rooms[conn.RoomID] = make(map[string]*Connection)
			}
			// A second socket for the same user replaces the first.
			if old, ok := h.rooms[conn.RoomID][conn.UserID]; ok {
				close(old.Send)
			}
			h.rooms[conn.RoomID][conn.UserID] = conn
			log.Printf("[WS] %s connected to room %s", conn.UserID, conn.RoomID)
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if members, ok := h.rooms[conn.RoomID]; ok {
				if existing, ok := members[conn.UserID]; ok && existing == conn {
					delete(members, conn.UserID)
					close(conn.Send)
					if len(members) == 0 {
						delete(h.rooms, conn.RoomID)
					}
					log.Printf("[WS] %s disconnected from room %s", conn.UserID, conn.RoomID)
				}
			}
			h.mu.Unlock()

		case roomID := <-h.closeRoom:
			h.mu.Lock()
			for _, conn := range h.rooms[roomID] {
				close(conn.Send)
			}
			delete(h.rooms, roomID)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				log.Printf("[WS] ERROR: failed to encode %s: %v", msg.Message.Type, err)
				continue
			}
			h.mu.RLock()
			for _, conn := range h.targets(msg) {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// targets must be called with h.mu held.
func (h *Hub) targets(msg *BroadcastMessage) []*Connection {
	var out []*Connection
	switch {
	case msg.RoomID == "":
		for _, members := range h.rooms {
			if conn, ok := members[msg.ToUser]; ok {
				out = append(out, conn)
			}
		}
	case msg.ToUser != "":
		if conn, ok := h.rooms[msg.RoomID][msg.ToUser]; ok {
			out = append(out, conn)
		}
	default:
		for _, conn := range h.rooms[msg.RoomID] {
			out = append(out, conn)
		}
	}
	return out
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Online returns how many sockets are open in roomID.
func (h *Hub) Online(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom sends a message to every socket in a room
func (h *Hub) BroadcastToRoom(roomID, msgType string, payload interface{}) {
	h.send(roomID, "", msgType, payload)
}

// BroadcastToUser sends a message to one user's socket in a room
func (h *Hub) BroadcastToUser(roomID, userID, msgType string, payload interface{}) {
	h.send(roomID, userID, msgType, payload)
}

// NotifyUser sends a message to the user in whatever rooms they are connected to
func (h *Hub) NotifyUser(userID, msgType string, payload interface{}) {
	h.send("", userID, msgType, payload)
}

// DisconnectRoom closes every socket in a room
func (h *Hub) DisconnectRoom(roomID string) {
	h.closeRoom <- roomID
}

func (h *Hub) send(roomID, userID, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] ERROR: failed to encode %s payload: %v", msgType, err)
		return
	}
	h.broadcast <- &BroadcastMessage{
		RoomID: roomID,
		ToUser: userID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
