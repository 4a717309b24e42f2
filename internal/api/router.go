package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/numduel/internal/api/handler"
	"github.com/mcoot/numduel/internal/api/middleware"
	"github.com/mcoot/numduel/internal/api/response"
	"github.com/mcoot/numduel/internal/services/auth"
	"github.com/mcoot/numduel/internal/services/game"
)

// HealthFunc reports the health of the server's dependencies
type HealthFunc func(ctx context.Context) response.Health

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	GameController game.ControllerInterface
	Matchmaker     handler.Matchmaker
	WebSocket      http.Handler
	Health         HealthFunc
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	gameHandler := handler.NewGameHandler(cfg.GameController, cfg.Matchmaker)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	// Room routes (all require auth)
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.Use(authMiddleware)
	rooms.HandleFunc("", gameHandler.ListRooms).Methods(http.MethodGet)
	rooms.HandleFunc("", gameHandler.CreateRoom).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/join", gameHandler.JoinRoom).Methods(http.MethodPost)

	// Game routes (all require auth)
	games := api.PathPrefix("/games").Subrouter()
	games.Use(authMiddleware)
	games.HandleFunc("", gameHandler.ListGames).Methods(http.MethodGet)
	games.HandleFunc("/{code}", gameHandler.GetGame).Methods(http.MethodGet)
	games.HandleFunc("/{code}", gameHandler.DeleteGame).Methods(http.MethodDelete)
	games.HandleFunc("/{code}/leave", gameHandler.LeaveGame).Methods(http.MethodPost)
	games.HandleFunc("/{code}/secret", gameHandler.SubmitSecret).Methods(http.MethodPost)
	games.HandleFunc("/{code}/guess", gameHandler.SubmitGuess).Methods(http.MethodPost)

	// Matchmaking routes (all require auth)
	queue := api.PathPrefix("/queue").Subrouter()
	queue.Use(authMiddleware)
	queue.HandleFunc("", gameHandler.JoinQueue).Methods(http.MethodPost)
	queue.HandleFunc("", gameHandler.LeaveQueue).Methods(http.MethodDelete)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Health)).Methods(http.MethodGet)

	// Websocket endpoint authenticates before the upgrade
	if cfg.WebSocket != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(recoveryMiddleware)
		ws.Use(loggingMiddleware)
		ws.Use(authMiddleware)
		ws.Handle("", cfg.WebSocket).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
			return
		}
		h := health(r.Context())
		status := http.StatusOK
		if h.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		response.JSON(w, status, h)
	}
}
