package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"riddlerush/internal/clock"
	"riddlerush/internal/model"
	"riddlerush/internal/repository"
)

// PresenceOracle answers whether a user is live in a room.
type PresenceOracle interface {
	IsPresent(ctx context.Context, roomID, userID string) (bool, error)
}

// SignalService is the store-and-forward mailbox for WebRTC handshakes.
// Messages are visible to polls for ttl after they are sent.
type SignalService struct {
	signals     repository.SignalRepo
	presence    PresenceOracle
	clock       clock.Clock
	ttl         time.Duration
	broadcaster Broadcaster
}

// NewSignalService creates a signal mailbox
func NewSignalService(signals repository.SignalRepo, presence PresenceOracle, clk clock.Clock, ttl time.Duration) *SignalService {
	return &SignalService{
		signals:     signals,
		presence:    presence,
		clock:       clk,
		ttl:         ttl,
		broadcaster: nopBroadcaster{},
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *SignalService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Send stores one message from fromUserID. Both peers must be present in
// roomID.
func (s *SignalService) Send(ctx context.Context, roomID, fromUserID string, req model.SendSignalRequest) (*model.Signal, error) {
	if req.To == "" || req.To == fromUserID {
		return nil, fmt.Errorf("%w: recipient must be another user", ErrInvalidSignal)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSignal, req.Type)
	}
	if err := validateSignal(req.Type, req.Payload); err != nil {
		return nil, err
	}

	for _, userID := range []string{fromUserID, req.To} {
		present, err := s.presence.IsPresent(ctx, roomID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check presence: %w", err)
		}
		if !present {
			return nil, fmt.Errorf("user %s in room %s: %w", userID, roomID, ErrNotPresent)
		}
	}

	signal := &model.Signal{
		ID:         uuid.New().String(),
		RoomID:     roomID,
		FromUserID: fromUserID,
		ToUserID:   req.To,
		Type:       req.Type,
		Payload:    req.Payload,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.signals.Insert(ctx, signal); err != nil {
		return nil, fmt.Errorf("failed to store signal: %w", err)
	}

	s.broadcaster.BroadcastToUser(roomID, req.To, EventSignalAvailable, map[string]interface{}{
		"id":   signal.ID,
		"from": fromUserID,
		"type": signal.Type,
	})
	return signal, nil
}

// Poll returns the unexpired messages for toUserID in roomID created at
// or after since, oldest first.
func (s *SignalService) Poll(ctx context.Context, roomID, toUserID string, since time.Time) ([]*model.Signal, error) {
	from := s.clock.Now().Add(-s.ttl)
	if since.After(from) {
		from = since
	}
	signals, err := s.signals.ListForRecipient(ctx, roomID, toUserID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}
	if signals == nil {
		signals = []*model.Signal{}
	}
	return signals, nil
}

// Consume deletes one message after the recipient has applied it. A
// message addressed to someone else is reported as not found.
func (s *SignalService) Consume(ctx context.Context, id, toUserID string) error {
	deleted, err := s.signals.Delete(ctx, id, toUserID)
	if err != nil {
		return fmt.Errorf("failed to delete signal: %w", err)
	}
	if !deleted {
		return fmt.Errorf("signal %s: %w", id, ErrNotFound)
	}
	return nil
}

// Sweep deletes every message older than the TTL.
func (s *SignalService) Sweep(ctx context.Context) (*model.SweepResult, error) {
	cutoff := s.clock.Now().Add(-s.ttl)
	n, err := s.signals.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep signals: %w", err)
	}
	if n > 0 {
		log.Printf("[Signal] Swept %d expired signals", n)
	}
	return &model.SweepResult{DeletedCount: n}, nil
}
