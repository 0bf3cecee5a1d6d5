package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	mathrand "math/rand/v2"

	"github.com/google/uuid"

	"riddlerush/internal/cache"
	"riddlerush/internal/clock"
	"riddlerush/internal/content"
	"riddlerush/internal/model"
	"riddlerush/internal/repository"
)

const (
	defaultMaxPlayers = 8
	maxRoomPlayers    = 16
)

// DefaultRoomSettings are applied to new rooms until the host changes them.
func DefaultRoomSettings() *model.RoomSettings {
	return &model.RoomSettings{
		NumberOfRiddles: 5,
		RiddleTimeSpan:  defaultSecondsPerRiddle,
		Category:        "funny",
		SkipBehaviour:   model.SkipNew,
	}
}

// RoomService handles room lifecycle and membership
type RoomService struct {
	rooms         repository.RoomRepo
	players       repository.RoomPlayerRepo
	notifications *NotificationService
	roomCache     cache.RoomCache
	clock         clock.Clock
	broadcaster   Broadcaster
	pick          func(n int) int
}

// NewRoomService creates a new room service. roomCache may be nil.
func NewRoomService(
	rooms repository.RoomRepo,
	players repository.RoomPlayerRepo,
	notifications *NotificationService,
	roomCache cache.RoomCache,
	clk clock.Clock,
) *RoomService {
	return &RoomService{
		rooms:         rooms,
		players:       players,
		notifications: notifications,
		roomCache:     roomCache,
		clock:         clk,
		broadcaster:   nopBroadcaster{},
		pick:          mathrand.IntN,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Create makes a room hosted by hostID. The host is the first player,
// ready, at join index 0.
func (s *RoomService) Create(ctx context.Context, hostID string, req model.CreateRoomRequest) (*model.Room, error) {
	visibility := req.Visibility
	if visibility == "" {
		visibility = model.RoomPublic
	}
	if visibility != model.RoomPublic && visibility != model.RoomPrivate {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, visibility)
	}
	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = defaultMaxPlayers
	}
	if maxPlayers < 2 || maxPlayers > maxRoomPlayers {
		return nil, fmt.Errorf("%w: maxPlayers must be between 2 and %d", ErrInvalidInput, maxRoomPlayers)
	}

	code, err := s.generateRoomCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate room code: %w", err)
	}

	now := s.clock.Now()
	room := &model.Room{
		ID:         uuid.New().String(),
		Code:       code,
		Name:       req.Name,
		HostID:     hostID,
		Visibility: visibility,
		MaxPlayers: maxPlayers,
		StartUser:  hostID,
		Settings:   DefaultRoomSettings(),
		CreatedAt:  now,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	host := &model.RoomPlayer{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		UserID:    hostID,
		Ready:     true,
		JoinIndex: 0,
		JoinedAt:  now,
	}
	if err := s.players.Add(ctx, host); err != nil {
		return nil, fmt.Errorf("failed to add host to room: %w", err)
	}

	log.Printf("[Room] Created %s (%s) hosted by %s", room.ID, code, hostID)
	return room, nil
}

// Get returns the room with its member counts.
func (s *RoomService) Get(ctx context.Context, roomID string) (*model.RoomView, error) {
	room, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := s.players.List(ctx, roomID)
	if err != nil {
		return nil, err
	}
	view := &model.RoomView{Room: *room, AcceptedPlayers: len(players)}
	for _, p := range players {
		if p.Ready {
			view.ReadyPlayers++
		}
	}
	return view, nil
}

func (s *RoomService) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("room %s: %w", code, ErrNotFound)
	}
	return room, nil
}

func (s *RoomService) ListPublic(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.rooms.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []*model.Room{}
	}
	return rooms, nil
}

// Players returns the room's members in turn order.
func (s *RoomService) Players(ctx context.Context, roomID string) ([]*model.RoomPlayer, error) {
	if _, err := s.load(ctx, roomID); err != nil {
		return nil, err
	}
	return s.players.List(ctx, roomID)
}

func (s *RoomService) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	p, err := s.players.Get(ctx, roomID, userID)
	return p != nil, err
}

// UpdateSettings replaces the game settings. Host only.
func (s *RoomService) UpdateSettings(ctx context.Context, roomID, userID string, settings model.RoomSettings) (*model.Room, error) {
	room, err := s.loadAsHost(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if room.Playing {
		return nil, fmt.Errorf("room %s is playing: %w", roomID, ErrInvalidState)
	}

	settings.Category = content.NormalizeCategory(settings.Category)
	if settings.SkipBehaviour == "" {
		settings.SkipBehaviour = model.SkipNew
	}
	switch {
	case settings.NumberOfRiddles < 1 || settings.NumberOfRiddles > maxRiddlesPerPlaytime:
		return nil, fmt.Errorf("%w: numberOfRiddles must be between 1 and %d", ErrInvalidInput, maxRiddlesPerPlaytime)
	case settings.RiddleTimeSpan < 5 || settings.RiddleTimeSpan > 600:
		return nil, fmt.Errorf("%w: riddleTimeSpan must be between 5 and 600 seconds", ErrInvalidInput)
	case settings.Category == "":
		return nil, fmt.Errorf("%w: category is required", ErrInvalidInput)
	case settings.SkipBehaviour != model.SkipNew && settings.SkipBehaviour != model.SkipPass:
		return nil, fmt.Errorf("%w: unknown skipBehaviour %q", ErrInvalidInput, settings.SkipBehaviour)
	}

	room.Settings = &settings
	if err := s.save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Join adds userID to a public room, or files a join request with the
// host of a private one.
func (s *RoomService) Join(ctx context.Context, roomID, userID string) (*model.JoinResult, error) {
	room, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	existing, err := s.players.Get(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &model.JoinResult{Status: model.JoinStatusMember, Player: existing}, nil
	}
	if err := s.checkCapacity(ctx, room); err != nil {
		return nil, err
	}

	if room.Visibility == model.RoomPrivate {
		pending, err := s.notifications.PendingJoinRequest(ctx, roomID, userID)
		if err != nil {
			return nil, err
		}
		if pending == nil {
			body := model.JoinRequested{RoomID: roomID, RequesterID: userID}
			if _, err := s.notifications.Notify(ctx, userID, room.HostID, body); err != nil {
				return nil, err
			}
		}
		return &model.JoinResult{Status: model.JoinStatusRequested}, nil
	}

	player, err := s.addPlayer(ctx, room, userID)
	if err != nil {
		return nil, err
	}
	return &model.JoinResult{Status: model.JoinStatusJoined, Player: player}, nil
}

// AcceptRequest admits the requester of a join request notification.
func (s *RoomService) AcceptRequest(ctx context.Context, notificationID, userID string) (*model.RoomPlayer, error) {
	n, req, room, err := s.loadJoinRequest(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}

	player, err := s.players.Get(ctx, room.ID, req.RequesterID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		if err := s.checkCapacity(ctx, room); err != nil {
			return nil, err
		}
		player, err = s.addPlayer(ctx, room, req.RequesterID)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.notifications.Notify(ctx, userID, req.RequesterID, model.JoinAccepted{RoomID: room.ID}); err != nil {
		return nil, err
	}
	if err := s.notifications.repo.MarkRead(ctx, n.ID); err != nil {
		return nil, err
	}
	return player, nil
}

// RejectRequest declines a join request notification.
func (s *RoomService) RejectRequest(ctx context.Context, notificationID, userID string) error {
	n, req, room, err := s.loadJoinRequest(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if _, err := s.notifications.Notify(ctx, userID, req.RequesterID, model.JoinRejected{RoomID: room.ID}); err != nil {
		return err
	}
	return s.notifications.repo.MarkRead(ctx, n.ID)
}

// ToggleReady flips userID's ready flag and returns the new value.
func (s *RoomService) ToggleReady(ctx context.Context, roomID, userID string) (bool, error) {
	player, err := s.players.Get(ctx, roomID, userID)
	if err != nil {
		return false, err
	}
	if player == nil {
		return false, fmt.Errorf("user %s is not in room %s: %w", userID, roomID, ErrNotFound)
	}
	ready := !player.Ready
	if err := s.players.SetReady(ctx, roomID, userID, ready); err != nil {
		return false, err
	}
	s.broadcastRoster(ctx, roomID)
	return ready, nil
}

// Quit removes userID from the room. A departing host hands the room to
// the next player in turn order; the last player out closes the room.
func (s *RoomService) Quit(ctx context.Context, roomID, userID string) error {
	room, err := s.load(ctx, roomID)
	if err != nil {
		return err
	}
	removed, err := s.players.Remove(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("user %s is not in room %s: %w", userID, roomID, ErrNotFound)
	}

	remaining, err := s.players.List(ctx, roomID)
	if err != nil {
		return err
	}

	if room.HostID == userID {
		if len(remaining) == 0 {
			return s.close(ctx, room)
		}
		newHost := remaining[0].UserID
		room.HostID = newHost
		log.Printf("[Room] Host %s left %s, ownership passes to %s", userID, roomID, newHost)
		body := model.OwnershipTransferred{RoomID: roomID, PreviousHostID: userID}
		if _, err := s.notifications.Notify(ctx, userID, newHost, body); err != nil {
			log.Printf("Warning: [Room] failed to notify new host %s: %v", newHost, err)
		}
	} else {
		body := model.PlayerQuit{RoomID: roomID, PlayerID: userID}
		if _, err := s.notifications.Notify(ctx, userID, room.HostID, body); err != nil {
			log.Printf("Warning: [Room] failed to notify host of quit: %v", err)
		}
	}

	if room.StartUser == userID {
		room.StartUser = s.pickStartUser(remaining)
	}
	if err := s.save(ctx, room); err != nil {
		return err
	}
	s.broadcastRoster(ctx, roomID)
	return nil
}

// RemovePlayer removes userID from the room on the host's behalf.
func (s *RoomService) RemovePlayer(ctx context.Context, roomID, hostID, userID string) error {
	room, err := s.loadAsHost(ctx, roomID, hostID)
	if err != nil {
		return err
	}
	if userID == hostID {
		return fmt.Errorf("%w: the host cannot remove themselves, quit instead", ErrInvalidInput)
	}
	removed, err := s.players.Remove(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("user %s is not in room %s: %w", userID, roomID, ErrNotFound)
	}

	if _, err := s.notifications.Notify(ctx, hostID, userID, model.PlayerRemoved{RoomID: roomID}); err != nil {
		log.Printf("Warning: [Room] failed to notify removed player %s: %v", userID, err)
	}
	if room.StartUser == userID {
		remaining, err := s.players.List(ctx, roomID)
		if err != nil {
			return err
		}
		room.StartUser = s.pickStartUser(remaining)
		if err := s.save(ctx, room); err != nil {
			return err
		}
	}
	s.broadcastRoster(ctx, roomID)
	return nil
}

// addPlayer inserts userID at the next join index, not ready, and
// re-draws the room's start user among all players.
func (s *RoomService) addPlayer(ctx context.Context, room *model.Room, userID string) (*model.RoomPlayer, error) {
	count, err := s.players.Count(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	player := &model.RoomPlayer{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		UserID:    userID,
		Ready:     false,
		JoinIndex: count,
		JoinedAt:  s.clock.Now(),
	}
	if err := s.players.Add(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to add player: %w", err)
	}

	players, err := s.players.List(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	room.StartUser = s.pickStartUser(players)
	if err := s.save(ctx, room); err != nil {
		return nil, err
	}

	log.Printf("[Room] %s joined %s at index %d", userID, room.ID, count)
	s.broadcastRoster(ctx, room.ID)
	return player, nil
}

func (s *RoomService) pickStartUser(players []*model.RoomPlayer) string {
	if len(players) == 0 {
		return ""
	}
	return players[s.pick(len(players))].UserID
}

func (s *RoomService) checkCapacity(ctx context.Context, room *model.Room) error {
	count, err := s.players.Count(ctx, room.ID)
	if err != nil {
		return err
	}
	if room.MaxPlayers > 0 && count >= room.MaxPlayers {
		return fmt.Errorf("room %s is full: %w", room.ID, ErrInvalidState)
	}
	return nil
}

func (s *RoomService) loadJoinRequest(ctx context.Context, notificationID, userID string) (*model.Notification, model.JoinRequested, *model.Room, error) {
	var req model.JoinRequested
	n, err := s.notifications.Get(ctx, notificationID)
	if err != nil {
		return nil, req, nil, err
	}
	req, ok := n.Body.(model.JoinRequested)
	if !ok {
		return nil, req, nil, fmt.Errorf("notification %s is a %s, not a join request: %w", notificationID, n.Kind, ErrInvalidState)
	}
	if n.Read {
		return nil, req, nil, fmt.Errorf("join request %s was already answered: %w", notificationID, ErrInvalidState)
	}
	room, err := s.loadAsHost(ctx, req.RoomID, userID)
	if err != nil {
		return nil, req, nil, err
	}
	return n, req, room, nil
}

func (s *RoomService) load(ctx context.Context, roomID string) (*model.Room, error) {
	if s.roomCache != nil {
		if room, err := s.roomCache.Get(ctx, roomID); err == nil && room != nil {
			return room, nil
		}
	}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	if s.roomCache != nil {
		if err := s.roomCache.Set(ctx, room); err != nil {
			log.Printf("Warning: [Room] failed to cache room %s: %v", roomID, err)
		}
	}
	return room, nil
}

func (s *RoomService) loadAsHost(ctx context.Context, roomID, userID string) (*model.Room, error) {
	room, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostID != userID {
		return nil, fmt.Errorf("only the host of room %s may do this: %w", roomID, ErrForbidden)
	}
	return room, nil
}

func (s *RoomService) save(ctx context.Context, room *model.Room) error {
	if err := s.rooms.Update(ctx, room); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	s.invalidate(ctx, room.ID)
	return nil
}

func (s *RoomService) close(ctx context.Context, room *model.Room) error {
	if err := s.rooms.Delete(ctx, room.ID); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	s.invalidate(ctx, room.ID)
	log.Printf("[Room] Closed %s, no players left", room.ID)
	s.broadcaster.BroadcastToRoom(room.ID, EventRoomClosed, map[string]string{"roomId": room.ID})
	s.broadcaster.DisconnectRoom(room.ID)
	return nil
}

func (s *RoomService) invalidate(ctx context.Context, roomID string) {
	if s.roomCache == nil {
		return
	}
	if err := s.roomCache.Delete(ctx, roomID); err != nil {
		log.Printf("Warning: [Room] failed to invalidate cached room %s: %v", roomID, err)
	}
}

func (s *RoomService) broadcastRoster(ctx context.Context, roomID string) {
	players, err := s.players.List(ctx, roomID)
	if err != nil {
		log.Printf("Warning: [Room] failed to load roster of %s: %v", roomID, err)
		return
	}
	s.broadcaster.BroadcastToRoom(roomID, EventRosterChanged, players)
}

// generateRoomCode creates a code like RR-7K2M9QX
func (s *RoomService) generateRoomCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 7

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := "RR-" + string(code)

		existing, err := s.rooms.GetByCode(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room code")
}
