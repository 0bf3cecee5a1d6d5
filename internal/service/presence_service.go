package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"riddlerush/internal/cache"
	"riddlerush/internal/clock"
	"riddlerush/internal/model"
	"riddlerush/internal/repository"
)

// PresenceService tracks who is live in a room and their audio state.
// It is also the liveness oracle that gates signaling.
type PresenceService struct {
	presence    cache.PresenceCache
	members     repository.RoomPlayerRepo
	clock       clock.Clock
	ttl         time.Duration
	broadcaster Broadcaster
}

// NewPresenceService creates a presence service. A record older than ttl
// no longer counts as present. members may be nil to skip the membership
// check on heartbeat.
func NewPresenceService(presence cache.PresenceCache, members repository.RoomPlayerRepo, clk clock.Clock, ttl time.Duration) *PresenceService {
	return &PresenceService{
		presence:    presence,
		members:     members,
		clock:       clk,
		ttl:         ttl,
		broadcaster: nopBroadcaster{},
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *PresenceService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Heartbeat refreshes lastSeen and applies the non-nil fields of update.
// A first heartbeat creates the record online, not speaking, mic off and
// speaker on.
func (s *PresenceService) Heartbeat(ctx context.Context, roomID, userID string, update model.PresenceUpdate) (*model.Presence, error) {
	if s.members != nil {
		member, err := s.members.Get(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, fmt.Errorf("user %s is not in room %s: %w", userID, roomID, ErrForbidden)
		}
	}

	p, err := s.presence.Get(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &model.Presence{
			RoomID:         roomID,
			UserID:         userID,
			IsOnline:       true,
			SpeakerEnabled: true,
		}
	}
	if update.IsOnline != nil {
		p.IsOnline = *update.IsOnline
	}
	if update.IsSpeaking != nil {
		p.IsSpeaking = *update.IsSpeaking
	}
	if update.MicEnabled != nil {
		p.MicEnabled = *update.MicEnabled
	}
	if update.SpeakerEnabled != nil {
		p.SpeakerEnabled = *update.SpeakerEnabled
	}
	return s.save(ctx, p)
}

// ToggleMic flips the microphone and stops speaking.
func (s *PresenceService) ToggleMic(ctx context.Context, roomID, userID string) (*model.Presence, error) {
	p, err := s.existing(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	p.MicEnabled = !p.MicEnabled
	p.IsSpeaking = false
	return s.save(ctx, p)
}

func (s *PresenceService) ToggleSpeaker(ctx context.Context, roomID, userID string) (*model.Presence, error) {
	p, err := s.existing(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	p.SpeakerEnabled = !p.SpeakerEnabled
	return s.save(ctx, p)
}

// Leave drops the user's presence record.
func (s *PresenceService) Leave(ctx context.Context, roomID, userID string) error {
	if err := s.presence.Remove(ctx, roomID, userID); err != nil {
		return err
	}
	s.broadcaster.BroadcastToRoom(roomID, EventPresenceChanged, map[string]interface{}{
		"userId":   userID,
		"isOnline": false,
	})
	return nil
}

// Room returns the live members of roomID sorted by user ID.
func (s *PresenceService) Room(ctx context.Context, roomID string) ([]*model.Presence, error) {
	all, err := s.presence.List(ctx, roomID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	live := make([]*model.Presence, 0, len(all))
	for _, p := range all {
		if s.live(p, now) {
			live = append(live, p)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].UserID < live[j].UserID })
	return live, nil
}

// IsPresent reports whether userID has an online record in roomID seen
// within the presence TTL.
func (s *PresenceService) IsPresent(ctx context.Context, roomID, userID string) (bool, error) {
	p, err := s.presence.Get(ctx, roomID, userID)
	if err != nil {
		return false, err
	}
	return s.live(p, s.clock.Now()), nil
}

func (s *PresenceService) live(p *model.Presence, now time.Time) bool {
	return p != nil && p.IsOnline && now.Sub(p.LastSeen) <= s.ttl
}

func (s *PresenceService) existing(ctx context.Context, roomID, userID string) (*model.Presence, error) {
	p, err := s.presence.Get(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("presence of %s in room %s: %w", userID, roomID, ErrNotFound)
	}
	return p, nil
}

func (s *PresenceService) save(ctx context.Context, p *model.Presence) (*model.Presence, error) {
	p.LastSeen = s.clock.Now()
	if err := s.presence.Set(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save presence: %w", err)
	}
	s.broadcaster.BroadcastToRoom(p.RoomID, EventPresenceChanged, p)
	if !p.IsOnline {
		log.Printf("[Presence] %s went offline in room %s", p.UserID, p.RoomID)
	}
	return p, nil
}
