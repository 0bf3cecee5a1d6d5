package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"riddlerush/internal/app"
	"riddlerush/internal/clock"
	"riddlerush/internal/config"
	"riddlerush/internal/content"
	"riddlerush/internal/service"
	"riddlerush/internal/transport/rest"
	"riddlerush/internal/transport/ws"
)

func main() {
	log.Println("started")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	clk := clock.Real()

	a := app.New(db, rdb, cfg)

	riddles := content.NewProvider(content.NewClient(cfg.RiddlesAPIURL), a.RiddleRepo, a.RiddleCache)

	// Initialize services
	authSvc := service.NewAuthService(a.UserRepo, cfg.JWTSecret)
	soloSvc := service.NewSoloService(a.PlaytimeRepo, riddles, clk)
	notificationSvc := service.NewNotificationService(a.NotificationRepo, clk)
	roomSvc := service.NewRoomService(a.RoomRepo, a.RoomPlayerRepo, notificationSvc, a.RoomCache, clk)
	roomPlaytimeSvc := service.NewRoomPlaytimeService(a.RoomPlaytimeRepo, a.RoomRepo, a.RoomPlayerRepo, riddles, a.LeaderboardCache, a.AdvanceLock, clk)
	presenceSvc := service.NewPresenceService(a.PresenceCache, a.RoomPlayerRepo, clk, cfg.PresenceTTL)
	signalSvc := service.NewSignalService(a.SignalRepo, presenceSvc, clk, cfg.SignalTTL)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	notificationSvc.SetBroadcaster(wsHub)
	roomSvc.SetBroadcaster(wsHub)
	roomPlaytimeSvc.SetBroadcaster(wsHub)
	presenceSvc.SetBroadcaster(wsHub)
	signalSvc.SetBroadcaster(wsHub)

	// Background workers
	go service.RunSignalSweeper(ctx, clk, cfg.SweepInterval, signalSvc)
	go service.RunTurnExpirer(ctx, clk, cfg.TurnScanPeriod, roomPlaytimeSvc)

	container := &rest.Container{
		AuthService:         authSvc,
		SoloService:         soloSvc,
		RoomService:         roomSvc,
		RoomPlaytimeService: roomPlaytimeSvc,
		PresenceService:     presenceSvc,
		SignalService:       signalSvc,
		NotificationService: notificationSvc,
		Riddles:             riddles,
		WSHub:               wsHub,
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: rest.NewRouter(container),
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Printf("Signal TTL %s, sweep every %s, presence TTL %s, turn scan every %s",
			cfg.SignalTTL, cfg.SweepInterval, cfg.PresenceTTL, cfg.TurnScanPeriod)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
