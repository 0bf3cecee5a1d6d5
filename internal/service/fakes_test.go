package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"riddlerush/internal/cache"
	"riddlerush/internal/model"
	"riddlerush/internal/repository"
)

// In-memory stand-ins for the Mongo and Redis layers. Stored values are
// copied on the way in and out so tests see the same aliasing as a real
// database.

type fakePlaytimeRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Playtime
	// beforeUpdate runs inside Update before the version check.
	beforeUpdate func(stored *model.Playtime)
}

func newFakePlaytimeRepo() *fakePlaytimeRepo {
	return &fakePlaytimeRepo{byID: make(map[string]*model.Playtime)}
}

func clonePlaytime(p *model.Playtime) *model.Playtime {
	c := *p
	c.Riddles = append([]model.RiddleRef(nil), p.Riddles...)
	c.Corrects = append([]string{}, p.Corrects...)
	c.Incorrects = append([]string{}, p.Incorrects...)
	c.Skipped = append([]string{}, p.Skipped...)
	return &c
}

func (r *fakePlaytimeRepo) Create(ctx context.Context, p *model.Playtime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = clonePlaytime(p)
	return nil
}

func (r *fakePlaytimeRepo) GetByID(ctx context.Context, id string) (*model.Playtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return clonePlaytime(p), nil
}

func (r *fakePlaytimeRepo) Update(ctx context.Context, p *model.Playtime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[p.ID]
	if !ok {
		return repository.ErrVersionConflict
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate(stored)
	}
	if stored.Version != p.Version {
		return repository.ErrVersionConflict
	}
	p.Version++
	r.byID[p.ID] = clonePlaytime(p)
	return nil
}

func (r *fakePlaytimeRepo) ListPlayingByUser(ctx context.Context, userID string) ([]*model.Playtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Playtime
	for _, p := range r.byID {
		if p.UserID == userID && p.Playing {
			out = append(out, clonePlaytime(p))
		}
	}
	return out, nil
}

type fakeRoomPlaytimeRepo struct {
	mu   sync.Mutex
	byID map[string]*model.RoomPlaytime
}

func newFakeRoomPlaytimeRepo() *fakeRoomPlaytimeRepo {
	return &fakeRoomPlaytimeRepo{byID: make(map[string]*model.RoomPlaytime)}
}

func cloneRoomPlaytime(p *model.RoomPlaytime) *model.RoomPlaytime {
	c := *p
	c.Riddles = append([]model.RiddleRef(nil), p.Riddles...)
	c.Play = append([]model.PlayEntry{}, p.Play...)
	if p.TurnDeadline != nil {
		d := *p.TurnDeadline
		c.TurnDeadline = &d
	}
	return &c
}

func (r *fakeRoomPlaytimeRepo) Create(ctx context.Context, p *model.RoomPlaytime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = cloneRoomPlaytime(p)
	return nil
}

func (r *fakeRoomPlaytimeRepo) GetByID(ctx context.Context, id string) (*model.RoomPlaytime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneRoomPlaytime(p), nil
}

func (r *fakeRoomPlaytimeRepo) Update(ctx context.Context, p *model.RoomPlaytime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[p.ID]
	if !ok || stored.Version != p.Version {
		return repository.ErrVersionConflict
	}
	p.Version++
	r.byID[p.ID] = cloneRoomPlaytime(p)
	return nil
}

func (r *fakeRoomPlaytimeRepo) ListExpiredTurns(ctx context.Context, now time.Time, limit int) ([]*model.RoomPlaytime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RoomPlaytime
	for _, p := range r.byID {
		if p.Playing && !p.Completed && p.TurnDeadline != nil && !p.TurnDeadline.After(now) {
			out = append(out, cloneRoomPlaytime(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnDeadline.Before(*out[j].TurnDeadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeRoomRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{byID: make(map[string]*model.Room)}
}

func cloneRoom(r *model.Room) *model.Room {
	c := *r
	if r.Settings != nil {
		s := *r.Settings
		c.Settings = &s
	}
	return &c
}

func (r *fakeRoomRepo) Create(ctx context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[room.ID] = cloneRoom(room)
	return nil
}

func (r *fakeRoomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return cloneRoom(room), nil
}

func (r *fakeRoomRepo) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, room := range r.byID {
		if room.Code == code {
			return cloneRoom(room), nil
		}
	}
	return nil, nil
}

func (r *fakeRoomRepo) Update(ctx context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[room.ID] = cloneRoom(room)
	return nil
}

func (r *fakeRoomRepo) ListPublic(ctx context.Context) ([]*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Room
	for _, room := range r.byID {
		if room.Visibility == model.RoomPublic {
			out = append(out, cloneRoom(room))
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

type fakeRoomPlayerRepo struct {
	mu      sync.Mutex
	players []*model.RoomPlayer
}

func (r *fakeRoomPlayerRepo) Add(ctx context.Context, p *model.RoomPlayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.players {
		if existing.RoomID == p.RoomID && existing.UserID == p.UserID {
			return fmt.Errorf("duplicate player %s", p.UserID)
		}
	}
	c := *p
	r.players = append(r.players, &c)
	return nil
}

func (r *fakeRoomPlayerRepo) Get(ctx context.Context, roomID, userID string) (*model.RoomPlayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.RoomID == roomID && p.UserID == userID {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeRoomPlayerRepo) List(ctx context.Context, roomID string) ([]*model.RoomPlayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RoomPlayer
	for _, p := range r.players {
		if p.RoomID == roomID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinIndex != out[j].JoinIndex {
			return out[i].JoinIndex < out[j].JoinIndex
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *fakeRoomPlayerRepo) ReadyRoster(ctx context.Context, roomID string) ([]model.RosterEntry, error) {
	players, _ := r.List(ctx, roomID)
	var roster []model.RosterEntry
	for _, p := range players {
		if p.Ready {
			roster = append(roster, model.RosterEntry{UserID: p.UserID, JoinIndex: p.JoinIndex})
		}
	}
	return roster, nil
}

func (r *fakeRoomPlayerRepo) Count(ctx context.Context, roomID string) (int, error) {
	players, _ := r.List(ctx, roomID)
	return len(players), nil
}

func (r *fakeRoomPlayerRepo) SetReady(ctx context.Context, roomID, userID string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.RoomID == roomID && p.UserID == userID {
			p.Ready = ready
		}
	}
	return nil
}

func (r *fakeRoomPlayerRepo) Remove(ctx context.Context, roomID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.players {
		if p.RoomID == roomID && p.UserID == userID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// seed adds ready players to roomID with the given join indexes.
func (r *fakeRoomPlayerRepo) seed(roomID string, entries ...model.RosterEntry) {
	for _, e := range entries {
		r.Add(context.Background(), &model.RoomPlayer{
			ID:        roomID + "-" + e.UserID,
			RoomID:    roomID,
			UserID:    e.UserID,
			Ready:     true,
			JoinIndex: e.JoinIndex,
		})
	}
}

type fakeSignalRepo struct {
	mu      sync.Mutex
	signals []*model.Signal
}

func (r *fakeSignalRepo) Insert(ctx context.Context, s *model.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.signals = append(r.signals, &c)
	return nil
}

func (r *fakeSignalRepo) ListForRecipient(ctx context.Context, roomID, toUserID string, from time.Time) ([]*model.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Signal
	for _, s := range r.signals {
		if s.RoomID == roomID && s.ToUserID == toUserID && !s.CreatedAt.Before(from) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSignalRepo) Delete(ctx context.Context, id, toUserID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.signals {
		if s.ID == id && s.ToUserID == toUserID {
			r.signals = append(r.signals[:i], r.signals[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSignalRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.signals[:0]
	var n int64
	for _, s := range r.signals {
		if s.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, s)
	}
	r.signals = kept
	return n, nil
}

type fakeNotificationRepo struct {
	mu   sync.Mutex
	list []*model.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *n
	r.list = append(r.list, &c)
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.list {
		if n.ID == id {
			c := *n
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeNotificationRepo) ListUnread(ctx context.Context, receiverID string) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, n := range r.list {
		if n.ReceiverID == receiverID && !n.Read {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) PendingJoinRequest(ctx context.Context, roomID, requesterID string) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.list {
		req, ok := n.Body.(model.JoinRequested)
		if ok && !n.Read && req.RoomID == roomID && n.CreatorID == requesterID {
			c := *n
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.list {
		if n.ID == id {
			n.Read = true
		}
	}
	return nil
}

// ofKind returns the stored notifications of kind addressed to receiver.
func (r *fakeNotificationRepo) ofKind(kind model.NotificationKind, receiver string) []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, n := range r.list {
		if n.Kind == kind && n.ReceiverID == receiver {
			out = append(out, n)
		}
	}
	return out
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetOrCreate(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.users == nil {
		r.users = make(map[string]*model.User)
	}
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	u := &model.User{ID: "user-" + username, Username: username}
	r.users[username] = u
	return u, nil
}

type fakePresenceCache struct {
	mu   sync.Mutex
	byID map[string]model.Presence
}

func newFakePresenceCache() *fakePresenceCache {
	return &fakePresenceCache{byID: make(map[string]model.Presence)}
}

func (c *fakePresenceCache) Set(ctx context.Context, p *model.Presence) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[p.RoomID+"/"+p.UserID] = *p
	return nil
}

func (c *fakePresenceCache) Get(ctx context.Context, roomID, userID string) (*model.Presence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.byID[roomID+"/"+userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *fakePresenceCache) List(ctx context.Context, roomID string) ([]*model.Presence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*model.Presence
	for _, p := range c.byID {
		if p.RoomID == roomID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (c *fakePresenceCache) Remove(ctx context.Context, roomID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, roomID+"/"+userID)
	return nil
}

type fakeLeaderboard struct {
	mu     sync.Mutex
	scores map[string]map[string]int
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{scores: make(map[string]map[string]int)}
}

func (l *fakeLeaderboard) SetScore(ctx context.Context, roomID, playerID string, correct int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.scores[roomID] == nil {
		l.scores[roomID] = make(map[string]int)
	}
	l.scores[roomID][playerID] = correct
	return nil
}

func (l *fakeLeaderboard) GetTop(ctx context.Context, roomID string, limit int) ([]cache.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []cache.LeaderboardEntry
	for id, score := range l.scores[roomID] {
		out = append(out, cache.LeaderboardEntry{PlayerID: id, Correct: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Correct != out[j].Correct {
			return out[i].Correct > out[j].Correct
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *fakeLeaderboard) GetRank(ctx context.Context, roomID, playerID string) (int64, error) {
	top, _ := l.GetTop(ctx, roomID, 0)
	for _, e := range top {
		if e.PlayerID == playerID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

func (l *fakeLeaderboard) Clear(ctx context.Context, roomID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.scores, roomID)
	return nil
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]string
}

func (l *fakeLock) Acquire(ctx context.Context, playtimeID, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]string)
	}
	if _, ok := l.held[playtimeID]; ok {
		return false, nil
	}
	l.held[playtimeID] = owner
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context, playtimeID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[playtimeID] == owner {
		delete(l.held, playtimeID)
	}
	return nil
}

type fakeRiddleSource struct {
	ids   []string
	calls int
}

func (f *fakeRiddleSource) FetchRiddleIDs(ctx context.Context, category string, count int) ([]string, error) {
	f.calls++
	if count < len(f.ids) {
		return f.ids[:count], nil
	}
	return f.ids, nil
}

type event struct {
	scope   string
	target  string
	msgType string
	payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (b *recordingBroadcaster) record(e event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID, msgType string, payload interface{}) {
	b.record(event{"room", roomID, msgType, payload})
}

func (b *recordingBroadcaster) BroadcastToUser(roomID, userID, msgType string, payload interface{}) {
	b.record(event{"user", roomID + "/" + userID, msgType, payload})
}

func (b *recordingBroadcaster) NotifyUser(userID, msgType string, payload interface{}) {
	b.record(event{"notify", userID, msgType, payload})
}

func (b *recordingBroadcaster) DisconnectRoom(roomID string) {
	b.record(event{"disconnect", roomID, "", nil})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.msgType
	}
	return out
}
