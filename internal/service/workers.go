package service

import (
	"context"
	"log"
	"time"

	"riddlerush/internal/clock"
)

const expireBatch = 50

// RunSignalSweeper sweeps expired signals every interval until ctx is
// cancelled.
func RunSignalSweeper(ctx context.Context, clk clock.Clock, interval time.Duration, signals *SignalService) {
	runEvery(ctx, clk, interval, func() {
		if _, err := signals.Sweep(ctx); err != nil {
			log.Printf("[Signal Sweeper] ERROR: %v", err)
		}
	})
}

// RunTurnExpirer times out overdue room turns every interval until ctx
// is cancelled.
func RunTurnExpirer(ctx context.Context, clk clock.Clock, interval time.Duration, playtimes *RoomPlaytimeService) {
	runEvery(ctx, clk, interval, func() {
		n, err := playtimes.ExpireTurns(ctx, expireBatch)
		if err != nil {
			log.Printf("[Turn Expirer] ERROR: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[Turn Expirer] Timed out %d turns", n)
		}
	})
}

func runEvery(ctx context.Context, clk clock.Clock, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
