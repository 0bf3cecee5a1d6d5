package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"riddlerush/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// TokenValidator resolves a bearer token to its user.
type TokenValidator interface {
	ValidateToken(token string) (*model.UserClaims, error)
}

// MembershipChecker reports whether a user belongs to a room.
type MembershipChecker interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// PresenceTracker receives heartbeats sent over the socket.
type PresenceTracker interface {
	Heartbeat(ctx context.Context, roomID, userID string, update model.PresenceUpdate) (*model.Presence, error)
	Leave(ctx context.Context, roomID, userID string) error
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	auth     TokenValidator
	members  MembershipChecker
	presence PresenceTracker
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, auth TokenValidator, members MembershipChecker, presence PresenceTracker) *Handler {
	return &Handler{
		hub:      hub,
		auth:     auth,
		members:  members,
		presence: presence,
	}
}

// RoomWS handles GET /v1/ws/rooms/{roomId}?token=
func (h *Handler) RoomWS(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	token := r.URL.Query().Get("token")

	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	member, err := h.members.IsMember(r.Context(), roomID, claims.UserID)
	if err != nil {
		log.Printf("[WS] ERROR: membership check for %s in %s: %v", claims.UserID, roomID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	conn := &Connection{
		RoomID: roomID,
		UserID: claims.UserID,
		Send:   make(chan []byte, 256),
		Hub:    h.hub,
	}

	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
		if h.presence != nil {
			if err := h.presence.Leave(context.Background(), conn.RoomID, conn.UserID); err != nil {
				log.Printf("Warning: [WS] failed to clear presence of %s: %v", conn.UserID, err)
			}
		}
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			break
		}
		h.handleMessage(conn, data)
	}
}

func (h *Handler) handleMessage(conn *Connection, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(conn, MsgError, map[string]string{"error": "malformed message"})
		return
	}

	switch msg.Type {
	case MsgHeartbeat:
		if h.presence == nil {
			return
		}
		var update model.PresenceUpdate
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &update); err != nil {
				h.reply(conn, MsgError, map[string]string{"error": "malformed heartbeat"})
				return
			}
		}
		if _, err := h.presence.Heartbeat(context.Background(), conn.RoomID, conn.UserID, update); err != nil {
			h.reply(conn, MsgError, map[string]string{"error": err.Error()})
		}
	default:
		h.reply(conn, MsgError, map[string]string{"error": "unknown message type " + string(msg.Type)})
	}
}

func (h *Handler) reply(conn *Connection, msgType MessageType, payload interface{}) {
	h.hub.BroadcastToUser(conn.RoomID, conn.UserID, string(msgType), payload)
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
