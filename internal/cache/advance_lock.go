package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AdvanceLock is a short-lived guard that lets only one advance per
// playtime be in flight. The version check on write remains the
// authority; this only avoids wasted work on double taps.
type AdvanceLock interface {
	Acquire(ctx context.Context, playtimeID, owner string) (bool, error)
	Release(ctx context.Context, playtimeID, owner string) error
}

type advanceLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAdvanceLock(client *redis.Client, ttl time.Duration) AdvanceLock {
	return &advanceLock{
		client: client,
		ttl:    ttl,
	}
}

func (c *advanceLock) key(playtimeID string) string {
	return fmt.Sprintf("playtime:%s:advance", playtimeID)
}

func (c *advanceLock) Acquire(ctx context.Context, playtimeID, owner string) (bool, error) {
	return c.client.SetNX(ctx, c.key(playtimeID), owner, c.ttl).Result()
}

// releaseScript deletes the key only if it still belongs to owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (c *advanceLock) Release(ctx context.Context, playtimeID, owner string) error {
	return releaseScript.Run(ctx, c.client, []string{c.key(playtimeID)}, owner).Err()
}
