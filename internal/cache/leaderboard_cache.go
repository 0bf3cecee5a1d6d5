package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache handles Redis ZSET operations for room leaderboards
type LeaderboardCache interface {
	SetScore(ctx context.Context, roomID, playerID string, correct int) error
	GetTop(ctx context.Context, roomID string, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, roomID, playerID string) (int64, error)
	Clear(ctx context.Context, roomID string) error
}

// LeaderboardEntry represents a single leaderboard entry
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Correct  int    `json:"correct"`
	Rank     int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) key(roomID string) string {
	return fmt.Sprintf("room:%s:lb", roomID)
}

func (c *leaderboardCache) SetScore(ctx context.Context, roomID, playerID string, correct int) error {
	return c.client.ZAdd(ctx, c.key(roomID), redis.Z{
		Score:  float64(correct),
		Member: playerID,
	}).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, roomID string, limit int) ([]LeaderboardEntry, error) {
	stop := int64(limit - 1)
	if limit <= 0 {
		stop = -1
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(roomID), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = LeaderboardEntry{
			PlayerID: member,
			Correct:  int(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, roomID, playerID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(roomID), playerID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

func (c *leaderboardCache) Clear(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, c.key(roomID)).Err()
}
