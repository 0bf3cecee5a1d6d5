package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"riddlerush/internal/model"
)

type RiddleCache interface {
	Set(ctx context.Context, riddle *model.Riddle) error
	Get(ctx context.Context, id string) (*model.Riddle, error)
}

type riddleCache struct {
	client *redis.Client
}

func NewRiddleCache(client *redis.Client) RiddleCache {
	return &riddleCache{
		client: client,
	}
}

func (c *riddleCache) Set(ctx context.Context, riddle *model.Riddle) error {
	data, err := json.Marshal(riddle)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "riddle:"+riddle.ID, data, time.Hour).Err()
}

func (c *riddleCache) Get(ctx context.Context, id string) (*model.Riddle, error) {
	data, err := c.client.Get(ctx, "riddle:"+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var riddle model.Riddle
	err = json.Unmarshal([]byte(data), &riddle)
	return &riddle, err
}
