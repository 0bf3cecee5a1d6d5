package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"riddlerush/internal/model"
)

// PresenceCache keeps one hash per room, field per user.
type PresenceCache interface {
	Set(ctx context.Context, p *model.Presence) error
	Get(ctx context.Context, roomID, userID string) (*model.Presence, error)
	List(ctx context.Context, roomID string) ([]*model.Presence, error)
	Remove(ctx context.Context, roomID, userID string) error
}

type presenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPresenceCache creates a presence cache. The room hash expires ttl
// after the last write to any member.
func NewPresenceCache(client *redis.Client, ttl time.Duration) PresenceCache {
	return &presenceCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *presenceCache) key(roomID string) string {
	return fmt.Sprintf("room:%s:presence", roomID)
}

func (c *presenceCache) Set(ctx context.Context, p *model.Presence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	key := c.key(p.RoomID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, p.UserID, data)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *presenceCache) Get(ctx context.Context, roomID, userID string) (*model.Presence, error) {
	data, err := c.client.HGet(ctx, c.key(roomID), userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p model.Presence
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *presenceCache) List(ctx context.Context, roomID string) ([]*model.Presence, error) {
	all, err := c.client.HGetAll(ctx, c.key(roomID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.Presence, 0, len(all))
	for _, data := range all {
		var p model.Presence
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

func (c *presenceCache) Remove(ctx context.Context, roomID, userID string) error {
	return c.client.HDel(ctx, c.key(roomID), userID).Err()
}
