package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"riddlerush/internal/model"
	"riddlerush/internal/service"
	"riddlerush/internal/transport/rest/middleware"
)

// RoomPlaytimeHandler handles multi-player playtime endpoints
type RoomPlaytimeHandler struct {
	playtimeSvc *service.RoomPlaytimeService
	roomSvc     *service.RoomService
}

func NewRoomPlaytimeHandler(playtimeSvc *service.RoomPlaytimeService, roomSvc *service.RoomService) *RoomPlaytimeHandler {
	return &RoomPlaytimeHandler{
		playtimeSvc: playtimeSvc,
		roomSvc:     roomSvc,
	}
}

// Create handles POST /v1/room-playtimes
func (h *RoomPlaytimeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRoomPlaytimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}
	if err := h.requireHost(r.Context(), req.RoomID); err != nil {
		writeServiceError(w, err)
		return
	}

	playtime, err := h.playtimeSvc.Create(r.Context(), req.RoomID, req.RiddleIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playtime)
}

// Get handles GET /v1/room-playtimes/{id}
func (h *RoomPlaytimeHandler) Get(w http.ResponseWriter, r *http.Request) {
	playtime, err := h.playtimeSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.requireMember(r.Context(), playtime.RoomID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playtime)
}

// Start handles POST /v1/room-playtimes/{id}/start
func (h *RoomPlaytimeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartRoomPlaytimeRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := mux.Vars(r)["id"]
	playtime, err := h.playtimeSvc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.requireHost(r.Context(), playtime.RoomID); err != nil {
		writeServiceError(w, err)
		return
	}

	pointers, err := h.playtimeSvc.Start(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pointers)
}

// Advance handles POST /v1/room-playtimes/{id}/advance
func (h *RoomPlaytimeHandler) Advance(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAdvance(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := mux.Vars(r)["id"]
	playtime, err := h.playtimeSvc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.requireMember(r.Context(), playtime.RoomID); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.playtimeSvc.Advance(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Scores handles GET /v1/room-playtimes/{id}/scores?player=
func (h *RoomPlaytimeHandler) Scores(w http.ResponseWriter, r *http.Request) {
	cards, err := h.playtimeSvc.Scores(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("player"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"scores": cards})
}

func (h *RoomPlaytimeHandler) requireMember(ctx context.Context, roomID string) error {
	member, err := h.roomSvc.IsMember(ctx, roomID, middleware.GetUserID(ctx))
	if err != nil {
		return err
	}
	if !member {
		return service.ErrForbidden
	}
	return nil
}

func (h *RoomPlaytimeHandler) requireHost(ctx context.Context, roomID string) error {
	room, err := h.roomSvc.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != middleware.GetUserID(ctx) {
		return service.ErrForbidden
	}
	return nil
}
