package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"riddlerush/internal/model"
	"riddlerush/internal/service"
	"riddlerush/internal/transport/rest/middleware"
)

// SoloHandler handles single-player playtime endpoints
type SoloHandler struct {
	soloSvc *service.SoloService
}

func NewSoloHandler(soloSvc *service.SoloService) *SoloHandler {
	return &SoloHandler{soloSvc: soloSvc}
}

// CreateSession handles POST /v1/solo
func (h *SoloHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.SoloSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	playtime, err := h.soloSvc.CreateSession(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playtime)
}

// CreatePlaytime handles POST /v1/solo/playtimes
func (h *SoloHandler) CreatePlaytime(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePlaytimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	playtime, err := h.soloSvc.CreatePlaytime(r.Context(), middleware.GetUserID(r.Context()), req.RiddleIDs, req.SecondsPerRiddle)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"playtimeId": playtime.ID})
}

// List handles GET /v1/solo/playtimes
func (h *SoloHandler) List(w http.ResponseWriter, r *http.Request) {
	playtimes, err := h.soloSvc.ListActive(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if playtimes == nil {
		playtimes = []*model.Playtime{}
	}
	writeJSON(w, http.StatusOK, playtimes)
}

// Get handles GET /v1/solo/playtimes/{id}
func (h *SoloHandler) Get(w http.ResponseWriter, r *http.Request) {
	playtime, err := h.soloSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if playtime.UserID != middleware.GetUserID(r.Context()) {
		writeError(w, http.StatusForbidden, "playtime belongs to another user")
		return
	}
	writeJSON(w, http.StatusOK, playtime)
}

// Advance handles POST /v1/solo/playtimes/{id}/advance
func (h *SoloHandler) Advance(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAdvance(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.soloSvc.Advance(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
