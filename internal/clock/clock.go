// Package clock lets services read the time and run tickers through an
// interface so tests can drive TTL and deadline logic deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock is the subset of the time package the services use.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C until Stop is called.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stopFunc() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stopFunc: ticker.Stop}
}

// FakeClock only moves when Advance is called. Tickers fire once per
// Advance call that crosses their next deadline.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*fakeTicker
}

type fakeTicker struct {
	next     time.Time
	interval time.Duration
	channel  chan time.Time
	stopped  bool
}

// Fake returns a FakeClock set to initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ft := &fakeTicker{
		next:     c.current.Add(d),
		interval: d,
		channel:  make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, ft)
	return &Ticker{
		C: ft.channel,
		stopFunc: func() {
			c.mu.Lock()
			ft.stopped = true
			c.mu.Unlock()
		},
	}
}

// Advance moves the clock forward by d and fires due tickers. A ticker
// whose consumer is behind drops the tick, as time.Ticker does.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	for _, ft := range c.tickers {
		if ft.stopped || ft.next.After(c.current) {
			continue
		}
		select {
		case ft.channel <- c.current:
		default:
		}
		for !ft.next.After(c.current) {
			ft.next = ft.next.Add(ft.interval)
		}
	}
}

// Set jumps the clock to t without firing tickers.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}
