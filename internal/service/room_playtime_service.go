package service

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"riddlerush/internal/cache"
	"riddlerush/internal/clock"
	"riddlerush/internal/model"
	"riddlerush/internal/progress"
	"riddlerush/internal/repository"
)

const defaultSecondsPerRiddle = 30

// RoomPlaytimeService runs multi-player playtimes: riddles in order while
// the turn rotates through the room's ready roster.
type RoomPlaytimeService struct {
	playtimes   repository.RoomPlaytimeRepo
	rooms       repository.RoomRepo
	players     repository.RoomPlayerRepo
	riddles     RiddleSource
	leaderboard cache.LeaderboardCache
	lock        cache.AdvanceLock
	clock       clock.Clock
	broadcaster Broadcaster
	pick        func(n int) int
}

// NewRoomPlaytimeService creates a room playtime service. leaderboard and
// lock may be nil.
func NewRoomPlaytimeService(
	playtimes repository.RoomPlaytimeRepo,
	rooms repository.RoomRepo,
	players repository.RoomPlayerRepo,
	riddles RiddleSource,
	leaderboard cache.LeaderboardCache,
	lock cache.AdvanceLock,
	clk clock.Clock,
) *RoomPlaytimeService {
	return &RoomPlaytimeService{
		playtimes:   playtimes,
		rooms:       rooms,
		players:     players,
		riddles:     riddles,
		leaderboard: leaderboard,
		lock:        lock,
		clock:       clk,
		broadcaster: nopBroadcaster{},
		pick:        rand.IntN,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *RoomPlaytimeService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetSeed makes start-user election reproducible.
func (s *RoomPlaytimeService) SetSeed(seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed))
	var mu sync.Mutex
	s.pick = func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return r.IntN(n)
	}
}

// Create makes a room playtime over riddleIDs and links it to the room.
// The riddle pointer starts on the first riddle; no turn is assigned
// until Start.
func (s *RoomPlaytimeService) Create(ctx context.Context, roomID string, riddleIDs []string) (*model.RoomPlaytime, error) {
	if len(riddleIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one riddle is required", ErrInvalidInput)
	}
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	seconds := defaultSecondsPerRiddle
	if room.Settings != nil && room.Settings.RiddleTimeSpan > 0 {
		seconds = room.Settings.RiddleTimeSpan
	}

	refs := model.NewRiddleRefs(riddleIDs)
	ptr := progress.RiddleAt(refs, progress.NextPending(refs, 0))
	playtime := &model.RoomPlaytime{
		ID:               uuid.New().String(),
		RoomID:           roomID,
		Riddles:          refs,
		Play:             []model.PlayEntry{},
		PreviousRiddle:   ptr.Previous,
		CurrentRiddle:    ptr.Current,
		NextRiddle:       ptr.Next,
		SecondsPerRiddle: seconds,
	}
	if err := s.playtimes.Create(ctx, playtime); err != nil {
		return nil, fmt.Errorf("failed to create room playtime: %w", err)
	}

	room.PlaytimeID = playtime.ID
	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to link playtime to room: %w", err)
	}

	log.Printf("[RoomPlaytime] Created %s for room %s with %d riddles", playtime.ID, roomID, len(refs))
	return playtime, nil
}

func (s *RoomPlaytimeService) Get(ctx context.Context, id string) (*model.RoomPlaytime, error) {
	playtime, err := s.playtimes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if playtime == nil {
		return nil, fmt.Errorf("room playtime %s: %w", id, ErrNotFound)
	}
	return playtime, nil
}

// Start activates a playtime and elects the first player. An empty
// req.Roster means the room's current ready roster.
func (s *RoomPlaytimeService) Start(ctx context.Context, id string, req model.StartRoomPlaytimeRequest) (*model.UserPointers, error) {
	playtime, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if playtime.Completed {
		return nil, fmt.Errorf("room playtime %s is completed: %w", id, ErrInvalidState)
	}
	if playtime.Playing {
		return nil, fmt.Errorf("room playtime %s already started: %w", id, ErrInvalidState)
	}

	roster := req.Roster
	if len(roster) == 0 {
		roster, err = s.players.ReadyRoster(ctx, playtime.RoomID)
		if err != nil {
			return nil, fmt.Errorf("failed to load roster: %w", err)
		}
	} else {
		roster = sortRoster(roster)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("room %s has no ready players: %w", playtime.RoomID, ErrInvalidState)
	}

	preferred := req.PreferredStartUser
	if preferred == "" {
		if room, err := s.rooms.GetByID(ctx, playtime.RoomID); err == nil && room != nil {
			preferred = room.StartUser
		}
	}
	idx := progress.IndexOfUser(roster, preferred)
	if idx == progress.NoIndex {
		idx = s.pick(len(roster))
	}

	users := progress.UserAt(roster, idx)
	playtime.PreviousUser, playtime.CurrentUser, playtime.NextUser = users.Previous, users.Current, users.Next
	playtime.Playing = true
	playtime.TurnDeadline = s.deadline(playtime)

	if err := s.playtimes.Update(ctx, playtime); err != nil {
		return nil, fmt.Errorf("failed to start room playtime %s: %w", id, conflictOr(err))
	}
	s.setRoomPlaying(ctx, playtime.RoomID, true)

	pointers := &model.UserPointers{
		PreviousUser: users.Previous,
		CurrentUser:  users.Current,
		NextUser:     users.Next,
	}
	log.Printf("[RoomPlaytime] Started %s, first turn %s", id, users.Current)
	s.broadcaster.BroadcastToRoom(playtime.RoomID, EventPlaytimeStarted, playtime)
	return pointers, nil
}

// Advance records req.Outcome for the current turn, then rotates both the
// riddle and the turn. It fails with ErrInvalidState once the playtime is
// completed and with ErrConflict when another advance won the race.
func (s *RoomPlaytimeService) Advance(ctx context.Context, id string, req model.AdvanceRequest) (*model.RoomAdvanceResult, error) {
	if s.lock != nil {
		owner := uuid.New().String()
		ok, err := s.lock.Acquire(ctx, id, owner)
		switch {
		case err != nil:
			log.Printf("Warning: [RoomPlaytime] advance lock unavailable for %s: %v", id, err)
		case !ok:
			return nil, fmt.Errorf("advance already in flight for %s: %w", id, ErrConflict)
		default:
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), id, owner); err != nil {
					log.Printf("Warning: [RoomPlaytime] failed to release advance lock for %s: %v", id, err)
				}
			}()
		}
	}

	playtime, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if playtime.RoomID == "" {
		return nil, fmt.Errorf("room playtime %s has no room: %w", id, ErrInvalidState)
	}
	if playtime.Completed {
		return nil, fmt.Errorf("room playtime %s is completed: %w", id, ErrInvalidState)
	}
	if !playtime.Playing {
		return nil, fmt.Errorf("room playtime %s has not started: %w", id, ErrInvalidState)
	}
	if req.ExpectedRiddle != "" && req.ExpectedRiddle != playtime.CurrentRiddle {
		return nil, fmt.Errorf("riddle %s is no longer current: %w", req.ExpectedRiddle, ErrConflict)
	}
	if !req.Outcome.Valid() {
		log.Printf("Warning: [RoomPlaytime] storing unknown outcome %q for %s", req.Outcome, id)
	}

	roster, err := s.players.ReadyRoster(ctx, playtime.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("room %s has no ready players: %w", playtime.RoomID, ErrInvalidState)
	}

	now := s.clock.Now()
	played, err := advanceRoom(playtime, roster, req.Outcome, now)
	if err != nil {
		return nil, err
	}
	playtime.TurnDeadline = s.deadline(playtime)

	if err := s.playtimes.Update(ctx, playtime); err != nil {
		return nil, fmt.Errorf("failed to save room playtime %s: %w", id, conflictOr(err))
	}

	if played != nil {
		s.updateLeaderboard(ctx, playtime, played.PlayedBy)
	}
	if playtime.Completed {
		s.setRoomPlaying(ctx, playtime.RoomID, false)
		s.broadcaster.BroadcastToRoom(playtime.RoomID, EventPlaytimeCompleted, playtime)
		log.Printf("[RoomPlaytime] Completed %s after %d turns", id, len(playtime.Play))
	} else {
		s.broadcaster.BroadcastToRoom(playtime.RoomID, EventTurnChanged, playtime)
	}

	return &model.RoomAdvanceResult{
		PreviousUser:   playtime.PreviousUser,
		CurrentUser:    playtime.CurrentUser,
		NextUser:       playtime.NextUser,
		PreviousRiddle: playtime.PreviousRiddle,
		CurrentRiddle:  playtime.CurrentRiddle,
		NextRiddle:     playtime.NextRiddle,
		Completed:      playtime.Completed,
	}, nil
}

// advanceRoom applies one advance to p in place against roster, which
// must be non-empty and in turn order. It returns the appended play entry,
// or nil when there was no current riddle to adjudicate.
func advanceRoom(p *model.RoomPlaytime, roster []model.RosterEntry, outcome model.Outcome, now time.Time) (*model.PlayEntry, error) {
	riddleIdx := progress.IndexOfRiddle(p.Riddles, p.CurrentRiddle)
	if riddleIdx != progress.NoIndex && p.Riddles[riddleIdx].Done {
		return nil, fmt.Errorf("riddle %s was already played: %w", p.CurrentRiddle, ErrConflict)
	}

	var played *model.PlayEntry
	if riddleIdx != progress.NoIndex {
		userIdx := progress.IndexOfUser(roster, p.CurrentUser)
		if userIdx == progress.NoIndex {
			log.Printf("Warning: [RoomPlaytime] current user %q of %s left the roster, turn goes to %s",
				p.CurrentUser, p.ID, roster[0].UserID)
			userIdx = 0
		}
		entry := model.PlayEntry{
			RiddleID:  p.Riddles[riddleIdx].ID,
			PlayedBy:  roster[userIdx].UserID,
			TurnIndex: len(p.Play),
			Result:    outcome,
			PlayedAt:  now,
		}
		p.Play = append(p.Play, entry)
		p.Riddles[riddleIdx].Done = true
		played = &entry

		users := progress.UserAt(roster, (userIdx+1)%len(roster))
		p.PreviousUser, p.CurrentUser, p.NextUser = users.Previous, users.Current, users.Next
	}

	next := progress.NextPending(p.Riddles, riddleIdx+1)
	if next == progress.NoIndex {
		if played != nil {
			p.PreviousRiddle = played.RiddleID
		}
		p.CurrentRiddle, p.NextRiddle = "", ""
		p.Completed = true
		p.Playing = false
		return played, nil
	}

	riddles := progress.RiddleAt(p.Riddles, next)
	p.PreviousRiddle, p.CurrentRiddle, p.NextRiddle = riddles.Previous, riddles.Current, riddles.Next
	return played, nil
}

// Scores reduces the play log. A non-empty playerID returns that
// player's card only.
func (s *RoomPlaytimeService) Scores(ctx context.Context, id, playerID string) ([]model.ScoreCard, error) {
	playtime, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if playerID != "" {
		return []model.ScoreCard{progress.Score(playtime.Play, playerID)}, nil
	}
	return progress.ScoreByPlayer(playtime.Play), nil
}

// Leaderboard returns the room's correct-answer ranking. It reads the
// Redis ZSET when available and otherwise reduces the room's playtime.
func (s *RoomPlaytimeService) Leaderboard(ctx context.Context, roomID string, limit int) ([]cache.LeaderboardEntry, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if s.leaderboard != nil {
		entries, err := s.leaderboard.GetTop(ctx, roomID, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			log.Printf("Warning: [RoomPlaytime] leaderboard cache read failed for %s: %v", roomID, err)
		}
	}
	if room.PlaytimeID == "" {
		return []cache.LeaderboardEntry{}, nil
	}

	playtime, err := s.Get(ctx, room.PlaytimeID)
	if err != nil {
		return nil, err
	}
	cards := progress.ScoreByPlayer(playtime.Play)
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	entries := make([]cache.LeaderboardEntry, len(cards))
	for i, c := range cards {
		entries[i] = cache.LeaderboardEntry{PlayerID: c.PlayerID, Correct: c.Correct, Rank: i + 1}
	}
	return entries, nil
}

// StartGame is the host's start button: it makes a playtime from the
// room settings if the room has none (or only a completed one), then
// starts it with the room's nominated start user.
func (s *RoomPlaytimeService) StartGame(ctx context.Context, roomID, userID string) (*model.UserPointers, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostID != userID {
		return nil, fmt.Errorf("only the host can start room %s: %w", roomID, ErrForbidden)
	}

	var playtime *model.RoomPlaytime
	if room.PlaytimeID != "" {
		playtime, err = s.playtimes.GetByID(ctx, room.PlaytimeID)
		if err != nil {
			return nil, err
		}
	}
	if playtime != nil && playtime.Playing {
		return nil, fmt.Errorf("room %s is already playing: %w", roomID, ErrInvalidState)
	}
	if playtime == nil || playtime.Completed {
		settings := room.Settings
		if settings == nil {
			settings = DefaultRoomSettings()
		}
		ids, err := s.riddles.FetchRiddleIDs(ctx, settings.Category, settings.NumberOfRiddles)
		if err != nil {
			return nil, err
		}
		playtime, err = s.Create(ctx, roomID, ids)
		if err != nil {
			return nil, err
		}
		if s.leaderboard != nil {
			if err := s.leaderboard.Clear(ctx, roomID); err != nil {
				log.Printf("Warning: [RoomPlaytime] failed to clear leaderboard for %s: %v", roomID, err)
			}
		}
	}

	return s.Start(ctx, playtime.ID, model.StartRoomPlaytimeRequest{PreferredStartUser: room.StartUser})
}

// ExpireTurns advances, as timedOut, every playtime whose turn deadline
// has passed. It returns how many turns it expired.
func (s *RoomPlaytimeService) ExpireTurns(ctx context.Context, limit int) (int, error) {
	expired, err := s.playtimes.ListExpiredTurns(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range expired {
		_, err := s.Advance(ctx, p.ID, model.AdvanceRequest{
			Outcome:        model.OutcomeTimedOut,
			ExpectedRiddle: p.CurrentRiddle,
		})
		if err != nil {
			log.Printf("[RoomPlaytime] Skipped expiring turn on %s: %v", p.ID, err)
			continue
		}
		count++
	}
	return count, nil
}

func (s *RoomPlaytimeService) deadline(p *model.RoomPlaytime) *time.Time {
	if p.SecondsPerRiddle <= 0 || p.CurrentRiddle == "" {
		return nil
	}
	d := s.clock.Now().Add(time.Duration(p.SecondsPerRiddle) * time.Second)
	return &d
}

func (s *RoomPlaytimeService) loadRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	return room, nil
}

func (s *RoomPlaytimeService) setRoomPlaying(ctx context.Context, roomID string, playing bool) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil || room == nil || room.Playing == playing {
		return
	}
	room.Playing = playing
	if err := s.rooms.Update(ctx, room); err != nil {
		log.Printf("Warning: [RoomPlaytime] failed to mark room %s playing=%v: %v", roomID, playing, err)
	}
}

func (s *RoomPlaytimeService) updateLeaderboard(ctx context.Context, p *model.RoomPlaytime, playerID string) {
	if s.leaderboard == nil {
		return
	}
	card := progress.Score(p.Play, playerID)
	if err := s.leaderboard.SetScore(ctx, p.RoomID, playerID, card.Correct); err != nil {
		log.Printf("Warning: [RoomPlaytime] failed to update leaderboard for %s: %v", p.RoomID, err)
	}
}

// sortRoster returns roster in turn order: joinIndex, then userId.
func sortRoster(roster []model.RosterEntry) []model.RosterEntry {
	sorted := make([]model.RosterEntry, len(roster))
	copy(sorted, roster)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].JoinIndex != sorted[j].JoinIndex {
			return sorted[i].JoinIndex < sorted[j].JoinIndex
		}
		return sorted[i].UserID < sorted[j].UserID
	})
	return sorted
}
