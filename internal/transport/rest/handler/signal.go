package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"riddlerush/internal/model"
	"riddlerush/internal/service"
	"riddlerush/internal/transport/rest/middleware"
)

// SignalHandler handles the WebRTC signaling mailbox
type SignalHandler struct {
	signalSvc *service.SignalService
}

func NewSignalHandler(signalSvc *service.SignalService) *SignalHandler {
	return &SignalHandler{signalSvc: signalSvc}
}

// Send handles POST /v1/rooms/{roomId}/signals
func (h *SignalHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	signal, err := h.signalSvc.Send(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, signal)
}

// Poll handles GET /v1/rooms/{roomId}/signals?since=
func (h *SignalHandler) Poll(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	signals, err := h.signalSvc.Poll(r.Context(), mux.Vars(r)["roomId"], middleware.GetUserID(r.Context()), since)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signals)
}

// Consume handles DELETE /v1/signals/{id}
func (h *SignalHandler) Consume(w http.ResponseWriter, r *http.Request) {
	if err := h.signalSvc.Consume(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sweep handles POST /v1/signals/sweep
func (h *SignalHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.signalSvc.Sweep(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
