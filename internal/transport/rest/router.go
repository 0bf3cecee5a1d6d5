package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"riddlerush/internal/content"
	"riddlerush/internal/service"
	"riddlerush/internal/transport/rest/handler"
	"riddlerush/internal/transport/rest/middleware"
	"riddlerush/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService         *service.AuthService
	SoloService         *service.SoloService
	RoomService         *service.RoomService
	RoomPlaytimeService *service.RoomPlaytimeService
	PresenceService     *service.PresenceService
	SignalService       *service.SignalService
	NotificationService *service.NotificationService
	Riddles             *content.Provider
	WSHub               *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	soloHandler := handler.NewSoloHandler(c.SoloService)
	roomHandler := handler.NewRoomHandler(c.RoomService, c.RoomPlaytimeService)
	playtimeHandler := handler.NewRoomPlaytimeHandler(c.RoomPlaytimeService, c.RoomService)
	presenceHandler := handler.NewPresenceHandler(c.PresenceService)
	signalHandler := handler.NewSignalHandler(c.SignalService)
	notificationHandler := handler.NewNotificationHandler(c.NotificationService, c.RoomService)
	riddleHandler := handler.NewRiddleHandler(c.Riddles)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.RoomService, c.PresenceService)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket route (public with token in query param)
	v1.HandleFunc("/ws/rooms/{roomId}", wsHandler.RoomWS).Methods("GET")

	// Authenticated routes
	user := v1.NewRoute().Subrouter()
	user.Use(authMW.RequireUser)

	user.HandleFunc("/solo", soloHandler.CreateSession).Methods("POST", "OPTIONS")
	user.HandleFunc("/solo/playtimes", soloHandler.CreatePlaytime).Methods("POST", "OPTIONS")
	user.HandleFunc("/solo/playtimes", soloHandler.List).Methods("GET", "OPTIONS")
	user.HandleFunc("/solo/playtimes/{id}", soloHandler.Get).Methods("GET", "OPTIONS")
	user.HandleFunc("/solo/playtimes/{id}/advance", soloHandler.Advance).Methods("POST", "OPTIONS")

	user.HandleFunc("/riddles/{id}", riddleHandler.Get).Methods("GET", "OPTIONS")

	user.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	user.HandleFunc("/rooms", roomHandler.List).Methods("GET", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}", roomHandler.Get).Methods("GET", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/settings", roomHandler.UpdateSettings).Methods("PUT", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/players", roomHandler.Players).Methods("GET", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/players/{userId}", roomHandler.RemovePlayer).Methods("DELETE", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/join", roomHandler.Join).Methods("POST", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/ready", roomHandler.Ready).Methods("POST", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/quit", roomHandler.Quit).Methods("POST", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/start", roomHandler.Start).Methods("POST", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/leaderboard", roomHandler.Leaderboard).Methods("GET", "OPTIONS")

	user.HandleFunc("/rooms/{roomId}/presence", presenceHandler.Heartbeat).Methods("POST", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/presence", presenceHandler.List).Methods("GET", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/presence/mic", presenceHandler.ToggleMic).Methods("POST", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/presence/speaker", presenceHandler.ToggleSpeaker).Methods("POST", "OPTIONS")

	user.HandleFunc("/rooms/{roomId}/signals", signalHandler.Send).Methods("POST", "OPTIONS")
	user.HandleFunc("/rooms/{roomId}/signals", signalHandler.Poll).Methods("GET", "OPTIONS")
	user.HandleFunc("/signals/sweep", signalHandler.Sweep).Methods("POST", "OPTIONS")
	user.HandleFunc("/signals/{id}", signalHandler.Consume).Methods("DELETE", "OPTIONS")

	user.HandleFunc("/room-playtimes", playtimeHandler.Create).Methods("POST", "OPTIONS")
	user.HandleFunc("/room-playtimes/{id}", playtimeHandler.Get).Methods("GET", "OPTIONS")
	user.HandleFunc("/room-playtimes/{id}/start", playtimeHandler.Start).Methods("POST", "OPTIONS")
	user.HandleFunc("/room-playtimes/{id}/advance", playtimeHandler.Advance).Methods("POST", "OPTIONS")
	user.HandleFunc("/room-playtimes/{id}/scores", playtimeHandler.Scores).Methods("GET", "OPTIONS")

	user.HandleFunc("/notifications", notificationHandler.List).Methods("GET", "OPTIONS")
	user.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods("POST", "OPTIONS")
	user.HandleFunc("/notifications/{id}/accept", notificationHandler.Accept).Methods("POST", "OPTIONS")
	user.HandleFunc("/notifications/{id}/reject", notificationHandler.Reject).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
