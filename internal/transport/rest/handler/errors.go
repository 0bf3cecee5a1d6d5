package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"riddlerush/internal/model"
	"riddlerush/internal/service"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotPresent):
		return http.StatusPreconditionFailed
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidSignal):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] ERROR: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// decodeAdvance reads an advance body and rejects unknown outcomes.
func decodeAdvance(r *http.Request) (model.AdvanceRequest, error) {
	var req model.AdvanceRequest
	if err := decodeOptional(r, &req); err != nil {
		return req, errors.New("invalid request body")
	}
	if !req.Outcome.Valid() {
		return req, errors.New("outcome must be one of correct, incorrect, skipped, timedOut")
	}
	return req, nil
}

// parseSince reads a unix-millisecond timestamp. Empty means the zero time.
func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, errors.New("since must be unix milliseconds")
	}
	return time.UnixMilli(ms), nil
}

func parseLimit(raw string, def int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return def
}
