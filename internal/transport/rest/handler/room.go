package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"riddlerush/internal/model"
	"riddlerush/internal/service"
	"riddlerush/internal/transport/rest/middleware"
)

// RoomHandler handles room lifecycle and membership endpoints
type RoomHandler struct {
	roomSvc     *service.RoomService
	playtimeSvc *service.RoomPlaytimeService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, playtimeSvc *service.RoomPlaytimeService) *RoomHandler {
	return &RoomHandler{
		roomSvc:     roomSvc,
		playtimeSvc: playtimeSvc,
	}
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRoomRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// List handles GET /v1/rooms and GET /v1/rooms?code=
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("code"); code != "" {
		room, err := h.roomSvc.GetByCode(r.Context(), code)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []*model.Room{room})
		return
	}

	rooms, err := h.roomSvc.ListPublic(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// Get handles GET /v1/rooms/{roomId}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.Get(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// Players handles GET /v1/rooms/{roomId}/players
func (h *RoomHandler) Players(w http.ResponseWriter, r *http.Request) {
	players, err := h.roomSvc.Players(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if players == nil {
		players = []*model.RoomPlayer{}
	}
	writeJSON(w, http.StatusOK, players)
}

// UpdateSettings handles PUT /v1/rooms/{roomId}/settings
func (h *RoomHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.RoomSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.UpdateSettings(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()), settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// Join handles POST /v1/rooms/{roomId}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	result, err := h.roomSvc.Join(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.Status == model.JoinStatusRequested {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// Ready handles POST /v1/rooms/{roomId}/ready
func (h *RoomHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready, err := h.roomSvc.ToggleReady(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": ready})
}

// Quit handles POST /v1/rooms/{roomId}/quit
func (h *RoomHandler) Quit(w http.ResponseWriter, r *http.Request) {
	if err := h.roomSvc.Quit(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemovePlayer handles DELETE /v1/rooms/{roomId}/players/{userId}
func (h *RoomHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.roomSvc.RemovePlayer(r.Context(), vars["roomId"], middleware.GetUserID(r.Context()), vars["userId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Start handles POST /v1/rooms/{roomId}/start
func (h *RoomHandler) Start(w http.ResponseWriter, r *http.Request) {
	pointers, err := h.playtimeSvc.StartGame(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pointers)
}

// Leaderboard handles GET /v1/rooms/{roomId}/leaderboard?top=
func (h *RoomHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	top := parseLimit(r.URL.Query().Get("top"), 20)

	entries, err := h.playtimeSvc.Leaderboard(r.Context(), mux.Vars(r)["roomId"], top)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}
