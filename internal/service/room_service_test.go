package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"riddlerush/internal/clock"
	"riddlerush/internal/model"
)

type roomServiceFixture struct {
	svc           *RoomService
	rooms         *fakeRoomRepo
	players       *fakeRoomPlayerRepo
	notifications *fakeNotificationRepo
	events        *recordingBroadcaster
}

func newRoomServiceFixture() *roomServiceFixture {
	f := &roomServiceFixture{
		rooms:         newFakeRoomRepo(),
		players:       &fakeRoomPlayerRepo{},
		notifications: &fakeNotificationRepo{},
		events:        &recordingBroadcaster{},
	}
	clk := clock.Fake(epoch)
	notes := NewNotificationService(f.notifications, clk)
	notes.SetBroadcaster(f.events)
	f.svc = NewRoomService(f.rooms, f.players, notes, nil, clk)
	f.svc.SetBroadcaster(f.events)
	f.svc.pick = func(int) int { return 0 }
	return f
}

func (f *roomServiceFixture) create(t *testing.T, host string, visibility model.RoomVisibility) *model.Room {
	t.Helper()
	room, err := f.svc.Create(context.Background(), host, model.CreateRoomRequest{Name: "den", Visibility: visibility})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return room
}

func TestRoomCreate(t *testing.T) {
	f := newRoomServiceFixture()
	room := f.create(t, "host", "")

	if !strings.HasPrefix(room.Code, "RR-") || len(room.Code) != 10 {
		t.Errorf("Code = %q, want RR- and 7 characters", room.Code)
	}
	if room.Visibility != model.RoomPublic || room.MaxPlayers != defaultMaxPlayers || room.StartUser != "host" {
		t.Errorf("room = %+v", room)
	}
	if *room.Settings != *DefaultRoomSettings() {
		t.Errorf("Settings = %+v, want defaults", *room.Settings)
	}

	host, _ := f.players.Get(context.Background(), room.ID, "host")
	if host == nil || !host.Ready || host.JoinIndex != 0 {
		t.Errorf("host membership = %+v, want ready at index 0", host)
	}

	_, err := f.svc.Create(context.Background(), "host", model.CreateRoomRequest{Visibility: "secret"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad visibility: err = %v, want ErrInvalidInput", err)
	}
	_, err = f.svc.Create(context.Background(), "host", model.CreateRoomRequest{MaxPlayers: 1})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("maxPlayers 1: err = %v, want ErrInvalidInput", err)
	}
}

func TestRoomJoinPublic(t *testing.T) {
	f := newRoomServiceFixture()
	ctx := context.Background()
	room := f.create(t, "host", model.RoomPublic)

	res, err := f.svc.Join(ctx, room.ID, "guest")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Status != model.JoinStatusJoined || res.Player.JoinIndex != 1 || res.Player.Ready {
		t.Errorf("join result = %+v / %+v", res, res.Player)
	}

	res, _ = f.svc.Join(ctx, room.ID, "guest")
	if res.Status != model.JoinStatusMember {
		t.Errorf("second join status = %q, want member", res.Status)
	}

	view, err := f.svc.Get(ctx, room.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.AcceptedPlayers != 2 || view.ReadyPlayers != 1 {
		t.Errorf("view counts = %d accepted, %d ready; want 2, 1", view.AcceptedPlayers, view.ReadyPlayers)
	}

	ready, err := f.svc.ToggleReady(ctx, room.ID, "guest")
	if err != nil || !ready {
		t.Errorf("ToggleReady = %v, %v; want true", ready, err)
	}
}

func TestRoomJoinFull(t *testing.T) {
	f := newRoomServiceFixture()
	ctx := context.Background()
	room, _ := f.svc.Create(ctx, "host", model.CreateRoomRequest{MaxPlayers: 2})

	if _, err := f.svc.Join(ctx, room.ID, "one"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := f.svc.Join(ctx, room.ID, "two"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("join full room: err = %v, want ErrInvalidState", err)
	}
}

func TestRoomPrivateJoinAccept(t *testing.T) {
	f := newRoomServiceFixture()
	ctx := context.Background()
	room := f.create(t, "host", model.RoomPrivate)

	res, err := f.svc.Join(ctx, room.ID, "guest")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if res.Status != model.JoinStatusRequested || res.Player != nil {
		t.Errorf("join result = %+v, want requested", res)
	}
	f.svc.Join(ctx, room.ID, "guest")

	requests := f.notifications.ofKind(model.KindJoinRequest, "host")
	if len(requests) != 1 {
		t.Fatalf("host has %d join requests, want 1", len(requests))
	}

	if _, err := f.svc.AcceptRequest(ctx, requests[0].ID, "guest"); !errors.Is(err, ErrForbidden) {
		t.Errorf("accept by requester: err = %v, want ErrForbidden", err)
	}

	player, err := f.svc.AcceptRequest(ctx, requests[0].ID, "host")
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	if player.UserID != "guest" || player.JoinIndex != 1 {
		t.Errorf("player = %+v", player)
	}
	if accepted := f.notifications.ofKind(model.KindAccepted, "guest"); len(accepted) != 1 {
		t.Errorf("guest has %d accepted notifications, want 1", len(accepted))
	}

	if _, err := f.svc.AcceptRequest(ctx, requests[0].ID, "host"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("accept twice: err = %v, want ErrInvalidState", err)
	}
}

func TestRoomPrivateJoinReject(t *testing.T) {
	f := newRoomServiceFixture()
	ctx := context.Background()
	room := f.create(t, "host", model.RoomPrivate)

	f.svc.Join(ctx, room.ID, "guest")
	req := f.notifications.ofKind(model.KindJoinRequest, "host")[0]

	if err := f.svc.RejectRequest(ctx, req.ID, "host"); err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}
	if rejected := f.notifications.ofKind(model.KindRejected, "guest"); len(rejected) != 1 {
		t.Errorf("guest has %d rejections, want 1", len(rejected))
	}
	if ok, _ := f.svc.IsMember(ctx, room.ID, "guest"); ok {
		t.Error("rejected guest became a member")
	}

	// A fresh request can be filed after a rejection.
	f.svc.Join(ctx, room.ID, "guest")
	if n := len(f.notifications.ofKind(model.KindJoinRequest, "host")); n != 2 {
		t.Errorf("host has %d join requests, want 2", n)
	}
}

func TestRoomQuitTransfersHost(t *testing.T) {
	f := newRoomServiceFixture()
	ctx := context.Background()
	room := f.create(t, "host", model.RoomPublic)
	f.svc.Join(ctx, room.ID, "second")
	f.svc.Join(ctx, room.ID, "third")

	if err := f.svc.Quit(ctx, room.ID, "host"); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	stored, _ := f.rooms.GetByID(ctx, room.ID)
	if stored.HostID != "second" {
		t.Errorf("HostID = %q, want second", stored.HostID)
	}
	if stored.StartUser == "host" {
		t.Error("StartUser still points at the departed host")
	}
	if n := len(f.notifications.ofKind(model.KindOwnershipTransfer, "second")); n != 1 {
		t.Errorf("new host has %d ownership notifications, want 1", n)
	}

	if err := f.svc.Quit(ctx, room.ID, "third"); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	if n := len(f.notifications.ofKind(model.KindQuit, "second")); n != 1 {
		t.Errorf("host has %d quit notifications, want 1", n)
	}
	if err := f.svc.Quit(ctx, room.ID, "third"); !errors.Is(err, ErrNotFound) {
		t.Errorf("quit twice: err = %v, want ErrNotFound", err)
	}

	if err := f.svc.Quit(ctx, room.ID, "second"); err != nil {
		t.Fatalf("last Quit: %v", err)
	}
	if gone, _ := f.rooms.GetByID(ctx, room.ID); gone != nil {
		t.Error("room survived its last player")
	}
	types := f.events.types()
	if types[len(types)-1] != "" || types[len(types)-2] != EventRoomClosed {
		t.Errorf("events end with %v, want room_closed then disconnect", types[len(types)-2:])
	}
}

func TestRoomRemovePlayer(t *testing.T) {
	f := newRoomServiceFixture()
	ctx := context.Background()
	room := f.create(t, "host", model.RoomPublic)
	f.svc.Join(ctx, room.ID, "guest")

	if err := f.svc.RemovePlayer(ctx, room.ID, "guest", "host"); !errors.Is(err, ErrForbidden) {
		t.Errorf("remove by guest: err = %v, want ErrForbidden", err)
	}
	if err := f.svc.RemovePlayer(ctx, room.ID, "host", "host"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("host removes self: err = %v, want ErrInvalidInput", err)
	}
	if err := f.svc.RemovePlayer(ctx, room.ID, "host", "guest"); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if ok, _ := f.svc.IsMember(ctx, room.ID, "guest"); ok {
		t.Error("guest still a member")
	}
	if n := len(f.notifications.ofKind(model.KindRemoved, "guest")); n != 1 {
		t.Errorf("guest has %d removal notifications, want 1", n)
	}
}

func TestRoomUpdateSettings(t *testing.T) {
	f := newRoomServiceFixture()
	ctx := context.Background()
	room := f.create(t, "host", model.RoomPublic)

	settings := model.RoomSettings{NumberOfRiddles: 10, RiddleTimeSpan: 45, Category: "  Logic "}
	updated, err := f.svc.UpdateSettings(ctx, room.ID, "host", settings)
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	want := model.RoomSettings{NumberOfRiddles: 10, RiddleTimeSpan: 45, Category: "logic", SkipBehaviour: model.SkipNew}
	if *updated.Settings != want {
		t.Errorf("Settings = %+v, want %+v", *updated.Settings, want)
	}

	bad := []model.RoomSettings{
		{NumberOfRiddles: 0, RiddleTimeSpan: 30, Category: "x"},
		{NumberOfRiddles: 5, RiddleTimeSpan: 1, Category: "x"},
		{NumberOfRiddles: 5, RiddleTimeSpan: 30, Category: " "},
		{NumberOfRiddles: 5, RiddleTimeSpan: 30, Category: "x", SkipBehaviour: "jump"},
	}
	for _, s := range bad {
		if _, err := f.svc.UpdateSettings(ctx, room.ID, "host", s); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("UpdateSettings(%+v): err = %v, want ErrInvalidInput", s, err)
		}
	}
	if _, err := f.svc.UpdateSettings(ctx, room.ID, "guest", settings); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-host: err = %v, want ErrForbidden", err)
	}
}

func TestRoomLookup(t *testing.T) {
	f := newRoomServiceFixture()
	ctx := context.Background()
	room := f.create(t, "host", model.RoomPublic)
	f.create(t, "other", model.RoomPrivate)

	byCode, err := f.svc.GetByCode(ctx, room.Code)
	if err != nil || byCode.ID != room.ID {
		t.Errorf("GetByCode = %v, %v", byCode, err)
	}
	if _, err := f.svc.GetByCode(ctx, "RR-NOPE000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown code: err = %v, want ErrNotFound", err)
	}
	public, _ := f.svc.ListPublic(ctx)
	if len(public) != 1 || public[0].ID != room.ID {
		t.Errorf("ListPublic = %v, want only the public room", public)
	}
	if _, err := f.svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing room: err = %v, want ErrNotFound", err)
	}
}
