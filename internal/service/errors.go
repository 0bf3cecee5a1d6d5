package service

import (
	"errors"

	"riddlerush/internal/repository"
)

var (
	// ErrNotFound means the playtime, room, signal or notification is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the operation does not apply to the record's
	// current state, e.g. advancing a completed room or an empty roster.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotPresent means a signaling peer has no live presence in the room.
	ErrNotPresent = errors.New("peer not present")
	// ErrConflict means another writer changed the record first; refetch
	// and retry with fresh input.
	ErrConflict = errors.New("conflict")
	// ErrInvalidSignal means the signal type or payload is malformed.
	ErrInvalidSignal = errors.New("invalid signal")
	ErrInvalidInput  = errors.New("invalid input")
	ErrForbidden     = errors.New("forbidden")
)

// conflictOr maps a repository version conflict to ErrConflict.
func conflictOr(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return ErrConflict
	}
	return err
}
