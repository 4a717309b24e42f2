package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/numduel/internal/api"
	"github.com/mcoot/numduel/internal/api/response"
	"github.com/mcoot/numduel/internal/api/ws"
	"github.com/mcoot/numduel/internal/config"
	"github.com/mcoot/numduel/internal/dependencies/clock"
	"github.com/mcoot/numduel/internal/dependencies/random"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/auth"
	"github.com/mcoot/numduel/internal/services/game"
	"github.com/mcoot/numduel/internal/services/matchmaking"
	"github.com/mcoot/numduel/internal/services/notify"
	"github.com/mcoot/numduel/internal/services/player"
	"github.com/mcoot/numduel/internal/services/presence"
	"github.com/mcoot/numduel/internal/services/registry"
	"github.com/mcoot/numduel/internal/storage"
	"github.com/mcoot/numduel/internal/storage/memory"
	redisstorage "github.com/mcoot/numduel/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Notifier type constants
const (
	NotifierTypeLog  = "log"
	NotifierTypeNATS = "nats"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService    *auth.Service
	PlayerService  *player.Service
	Presence       *presence.Registry
	Registry       *registry.Registry
	Notifications  *notify.Dispatcher
	GameController *game.Controller
	Matchmaking    *matchmaking.Service
	WSHandler      *ws.Handler

	logger         *slog.Logger
	closers        []func() error
	stopBackground context.CancelFunc
}

const (
	// sessionSweepInterval is how often expired login sessions are dropped
	sessionSweepInterval = 10 * time.Minute
	// clientDrainTimeout bounds how long Close waits for websocket clients
	clientDrainTimeout = 15 * time.Second
)

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// NotifierType selects how notifications are delivered ("log" or "nats")
	// If empty, defaults to "log"
	NotifierType string
	// NATSURL and NATSSubjectPrefix configure the NATS notifier
	NATSURL           string
	NATSSubjectPrefix string
	// NotifyTimeout bounds each notification delivery
	NotifyTimeout time.Duration

	// Zero values fall back to each package's defaults
	AuthConfig        auth.Config
	GameConfig        game.Config
	RegistryConfig    registry.Config
	MatchmakingConfig matchmaking.Config
	Rewards           player.Rewards
}

// FromConfig maps loaded configuration onto the factory
func FromConfig(cfg *config.Config, logger *slog.Logger) Config {
	return Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		RedisConfig: &redisstorage.Config{
			URL:            cfg.Redis.URL,
			PoolSize:       cfg.Redis.PoolSize,
			MinIdleConns:   cfg.Redis.MinIdleConns,
			GuestPlayerTTL: cfg.Redis.GuestPlayerTTL,
			RoomTTL:        cfg.Redis.RoomTTL,
		},
		NotifierType:      cfg.Notify.Type,
		NATSURL:           cfg.NATS.URL,
		NATSSubjectPrefix: cfg.NATS.SubjectPrefix,
		NotifyTimeout:     cfg.Notify.Timeout,
		AuthConfig: auth.Config{
			SessionDuration: cfg.Auth.SessionDuration,
			StartingRating:  cfg.Auth.StartingRating,
		},
		GameConfig: game.Config{
			ForfeitTimeout: cfg.Game.ForfeitTimeout,
		},
		RegistryConfig: registry.Config{
			SaveAttempts: cfg.Game.SaveAttempts,
			RetryBackoff: cfg.Game.RetryBackoff,
		},
		MatchmakingConfig: matchmaking.Config{
			SweepInterval: cfg.Matchmaking.SweepInterval,
			BaseThreshold: cfg.Matchmaking.BaseThreshold,
			ThresholdStep: cfg.Matchmaking.ThresholdStep,
			StepInterval:  cfg.Matchmaking.StepInterval,
			MaxThreshold:  cfg.Matchmaking.MaxThreshold,
		},
		Rewards: player.Rewards{
			RatingChange:         cfg.Rewards.RatingChange,
			WinnerXP:             cfg.Rewards.WinnerXP,
			LoserXP:              cfg.Rewards.LoserXP,
			WinnerCoins:          cfg.Rewards.WinnerCoins,
			RankedCoinMultiplier: cfg.Rewards.RankedCoinMultiplier,
		},
	}
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []func() error

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store = redisStore
		closers = append(closers, redisStore.Close)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create notifier based on type
	var notifier notify.Notifier
	switch cfg.NotifierType {
	case "", NotifierTypeLog:
		notifier = notify.NewLogNotifier(logger)
	case NotifierTypeNATS:
		nc, err := notify.Connect(cfg.NATSURL)
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		notifier = notify.NewNATSNotifier(nc, cfg.NATSSubjectPrefix)
		closers = append(closers, func() error {
			return nc.Drain()
		})
	default:
		closeAll(closers)
		return nil, errors.New("invalid NotifierType: must be 'log' or 'nats'")
	}

	app := newWithDependencies(store, clock.New(), random.New(), notifier, cfg, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	notifier notify.Notifier,
	cfg Config,
	logger *slog.Logger,
) *App {
	rewards := cfg.Rewards
	if rewards == (player.Rewards{}) {
		rewards = player.DefaultRewards()
	}
	registryCfg := cfg.RegistryConfig
	if registryCfg.SaveAttempts == 0 {
		registryCfg = registry.DefaultConfig()
	}

	// Create services
	authService := auth.New(store, clk, rnd, logger, cfg.AuthConfig)
	playerService := player.New(store, rewards, logger)
	presenceRegistry := presence.NewRegistry(logger)
	sessionRegistry := registry.New(store, registryCfg, logger)
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyTimeout, logger)
	gameController := game.NewController(
		sessionRegistry,
		playerService,
		presenceRegistry,
		dispatcher,
		clk,
		rnd,
		logger,
		cfg.GameConfig,
	)
	matchmakingService := matchmaking.New(playerService, gameController, clk, logger, cfg.MatchmakingConfig)

	// A lost connection takes the player out of matchmaking and detaches them from their rooms
	presenceRegistry.OnDisconnect(func(playerID model.PlayerID) {
		matchmakingService.Leave(playerID)
		gameController.HandleDisconnect(context.Background(), playerID)
	})

	wsRouter := ws.NewRouter(gameController, matchmakingService, logger)
	wsHandler := ws.NewHandler(presenceRegistry, wsRouter, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		AuthService:    authService,
		PlayerService:  playerService,
		Presence:       presenceRegistry,
		Registry:       sessionRegistry,
		Notifications:  dispatcher,
		GameController: gameController,
		Matchmaking:    matchmakingService,
		WSHandler:      wsHandler,
		logger:         logger,
	}
}

// Router builds the HTTP handler serving the REST API and the websocket endpoint
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:         a.logger,
		AuthService:    a.AuthService,
		GameController: a.GameController,
		Matchmaker:     a.Matchmaking,
		WebSocket:      a.WSHandler,
		Health:         a.Health,
	})
}

// Start restores persisted sessions and starts the matchmaking sweep
func (a *App) Start(ctx context.Context) error {
	rooms, err := a.GameController.RestoreTimers(ctx)
	if err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}
	a.logger.Info("sessions restored", slog.Int("rooms", rooms))

	a.Matchmaking.Start(ctx)

	bg, cancel := context.WithCancel(ctx)
	a.stopBackground = cancel
	go a.AuthService.RunJanitor(bg, sessionSweepInterval)
	return nil
}

// Close stops background work, disconnects clients and releases connections.
// Clients are dropped without running disconnect handling, so active games
// stay in the store and are restored by the next Start.
func (a *App) Close() error {
	if a.stopBackground != nil {
		a.stopBackground()
	}
	a.Matchmaking.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), clientDrainTimeout)
	defer cancel()
	if err := a.WSHandler.Shutdown(ctx); err != nil {
		a.logger.Warn("websocket clients did not drain", slog.String("error", err.Error()))
	}
	a.Registry.StopTimers()

	a.Notifications.Close()
	return closeAll(a.closers)
}

// Health reports whether the store is reachable
func (a *App) Health(ctx context.Context) response.Health {
	h := response.Health{
		Status:      "ok",
		Storage:     "ok",
		ActiveRooms: a.Registry.Len(),
		Connected:   a.Presence.Count(),
	}
	if pinger, ok := a.Storage.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			h.Status = "degraded"
			h.Storage = err.Error()
		}
	}
	return h
}

func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
