package service

import (
	"context"
	"testing"
	"time"

	"riddlerush/internal/clock"
	"riddlerush/internal/model"
)

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestRunSignalSweeper(t *testing.T) {
	f := newSignalFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSignalSweeper(ctx, f.clock, 10*time.Second, f.svc)
		close(done)
	}()

	f.repo.Insert(ctx, &model.Signal{ID: "s1", RoomID: "room1", ToUserID: "bob", CreatedAt: f.clock.Now()})

	// The ticker is registered asynchronously; keep nudging the clock
	// until the signal has aged out and a sweep has run.
	waitFor(t, func() bool {
		f.clock.Advance(10 * time.Second)
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		return len(f.repo.signals) == 0
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestRunTurnExpirer(t *testing.T) {
	f := newRoomFixture(t, "A", "B")
	p := f.start(t, []string{"R1", "R2"}, "A")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunTurnExpirer(ctx, f.clock, 5*time.Second, f.svc)

	waitFor(t, func() bool {
		f.clock.Advance(5 * time.Second)
		stored, _ := f.playtimes.GetByID(context.Background(), p.ID)
		return len(stored.Play) > 0
	})

	stored, _ := f.playtimes.GetByID(context.Background(), p.ID)
	if stored.Play[0].Result != model.OutcomeTimedOut {
		t.Errorf("Result = %q, want timedOut", stored.Play[0].Result)
	}
}

func TestRunEveryIgnoresNonPositiveInterval(t *testing.T) {
	done := make(chan struct{})
	go func() {
		runEvery(context.Background(), clock.Fake(epoch), 0, func() { t.Error("fn called") })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runEvery blocked with a zero interval")
	}
}
