package app

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"riddlerush/internal/cache"
	"riddlerush/internal/config"
	"riddlerush/internal/repository"
)

const (
	advanceLockTTL = 5 * time.Second
	// Rooms idle this long lose their presence hash.
	presenceRetention = 24 * time.Hour
	// Mongo TTL on stored signals, well past the visibility window.
	signalBackstopFactor = 10
)

// App bundles the storage layer shared by every service.
type App struct {
	UserRepo         repository.UserRepo
	RiddleRepo       repository.RiddleRepo
	PlaytimeRepo     repository.PlaytimeRepo
	RoomPlaytimeRepo repository.RoomPlaytimeRepo
	RoomRepo         repository.RoomRepo
	RoomPlayerRepo   repository.RoomPlayerRepo
	SignalRepo       repository.SignalRepo
	NotificationRepo repository.NotificationRepo

	PresenceCache    cache.PresenceCache
	LeaderboardCache cache.LeaderboardCache
	RoomCache        cache.RoomCache
	RiddleCache      cache.RiddleCache
	AdvanceLock      cache.AdvanceLock
}

// New builds repositories (creating their indexes) and caches.
func New(db *mongo.Database, rdb *redis.Client, cfg *config.Config) *App {
	return &App{
		UserRepo:         repository.NewUserRepo(db),
		RiddleRepo:       repository.NewRiddleRepo(db),
		PlaytimeRepo:     repository.NewPlaytimeRepo(db),
		RoomPlaytimeRepo: repository.NewRoomPlaytimeRepo(db),
		RoomRepo:         repository.NewRoomRepo(db),
		RoomPlayerRepo:   repository.NewRoomPlayerRepo(db),
		SignalRepo:       repository.NewSignalRepo(db, signalBackstopFactor*cfg.SignalTTL),
		NotificationRepo: repository.NewNotificationRepo(db),

		PresenceCache:    cache.NewPresenceCache(rdb, presenceRetention),
		LeaderboardCache: cache.NewLeaderboardCache(rdb),
		RoomCache:        cache.NewRoomCache(rdb),
		RiddleCache:      cache.NewRiddleCache(rdb),
		AdvanceLock:      cache.NewAdvanceLock(rdb, advanceLockTTL),
	}
}
