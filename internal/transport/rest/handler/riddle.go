package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"riddlerush/internal/content"
)

// RiddleHandler serves stored riddle content. Playtimes only carry IDs.
type RiddleHandler struct {
	riddles *content.Provider
}

func NewRiddleHandler(riddles *content.Provider) *RiddleHandler {
	return &RiddleHandler{riddles: riddles}
}

// Get handles GET /v1/riddles/{id}
func (h *RiddleHandler) Get(w http.ResponseWriter, r *http.Request) {
	riddle, err := h.riddles.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if riddle == nil {
		writeError(w, http.StatusNotFound, "riddle not found")
		return
	}
	writeJSON(w, http.StatusOK, riddle)
}
