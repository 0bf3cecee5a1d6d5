package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"riddlerush/internal/service"
	"riddlerush/internal/transport/rest/middleware"
)

// NotificationHandler handles the user's notification inbox
type NotificationHandler struct {
	notificationSvc *service.NotificationService
	roomSvc         *service.RoomService
}

func NewNotificationHandler(notificationSvc *service.NotificationService, roomSvc *service.RoomService) *NotificationHandler {
	return &NotificationHandler{
		notificationSvc: notificationSvc,
		roomSvc:         roomSvc,
	}
}

// List handles GET /v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.notificationSvc.Unread(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkRead handles POST /v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationSvc.MarkRead(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Accept handles POST /v1/notifications/{id}/accept
func (h *NotificationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	player, err := h.roomSvc.AcceptRequest(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// Reject handles POST /v1/notifications/{id}/reject
func (h *NotificationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.roomSvc.RejectRequest(r.Context(), mux.Vars(r)["id"], middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
