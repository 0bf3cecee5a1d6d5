package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"riddlerush/internal/model"
	"riddlerush/internal/service"
	"riddlerush/internal/transport/rest/middleware"
)

// PresenceHandler handles liveness and audio state endpoints
type PresenceHandler struct {
	presenceSvc *service.PresenceService
}

func NewPresenceHandler(presenceSvc *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presenceSvc: presenceSvc}
}

// Heartbeat handles POST /v1/rooms/{roomId}/presence
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var update model.PresenceUpdate
	if err := decodeOptional(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.presenceSvc.Heartbeat(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()), update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// List handles GET /v1/rooms/{roomId}/presence
func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	live, err := h.presenceSvc.Room(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}

// ToggleMic handles POST /v1/rooms/{roomId}/presence/mic
func (h *PresenceHandler) ToggleMic(w http.ResponseWriter, r *http.Request) {
	p, err := h.presenceSvc.ToggleMic(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ToggleSpeaker handles POST /v1/rooms/{roomId}/presence/speaker
func (h *PresenceHandler) ToggleSpeaker(w http.ResponseWriter, r *http.Request) {
	p, err := h.presenceSvc.ToggleSpeaker(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
