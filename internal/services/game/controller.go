package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/numduel/internal/dependencies/clock"
	"github.com/mcoot/numduel/internal/dependencies/random"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/notify"
	"github.com/mcoot/numduel/internal/services/player"
	"github.com/mcoot/numduel/internal/services/registry"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Presence is the view of the connection registry the controller needs
type Presence interface {
	Send(playerID model.PlayerID, event model.Event) error
	IsConnected(playerID model.PlayerID) bool
}

// PlayerDirectory looks up players and records match results
type PlayerDirectory interface {
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	ApplyResult(ctx context.Context, result player.MatchResult) error
}

// Notifier dispatches out-of-band notifications without blocking
type Notifier interface {
	NotifyUser(playerID model.PlayerID, n notify.Notification)
	NotifyUsers(playerIDs []model.PlayerID, n notify.Notification)
}

// Config holds game timing settings
type Config struct {
	// ForfeitTimeout is how long a ranked player may be absent before forfeiting
	ForfeitTimeout time.Duration
	// RoomCodeAttempts bounds room code generation on collision
	RoomCodeAttempts int
}

// DefaultConfig returns the default game configuration
func DefaultConfig() Config {
	return Config{
		ForfeitTimeout:   60 * time.Second,
		RoomCodeAttempts: 10,
	}
}

// GuessOutcome is the result of an accepted guess
type GuessOutcome struct {
	Feedback model.Feedback    `json:"feedback"`
	Session  model.SessionView `json:"session"`
}

// Controller runs the game session state machine.
// Every mutation of a session happens under its room lock, against a clone,
// and is persisted before the clone replaces the committed session.
type Controller struct {
	registry *registry.Registry
	players  PlayerDirectory
	presence Presence
	notifier Notifier
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
	cfg      Config
}

// NewController creates a new game controller
func NewController(
	registry *registry.Registry,
	players PlayerDirectory,
	presence Presence,
	notifier Notifier,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	defaults := DefaultConfig()
	if cfg.ForfeitTimeout <= 0 {
		cfg.ForfeitTimeout = defaults.ForfeitTimeout
	}
	if cfg.RoomCodeAttempts <= 0 {
		cfg.RoomCodeAttempts = defaults.RoomCodeAttempts
	}
	return &Controller{
		registry: registry,
		players:  players,
		presence: presence,
		notifier: notifier,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "game")),
		cfg:      cfg,
	}
}

// NormalizeRoomCode upper-cases a code and checks its shape
func NormalizeRoomCode(code string) (model.RoomCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != roomCodeLength {
		return "", model.ErrInvalidRoomCode
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", model.ErrInvalidRoomCode
		}
	}
	return model.RoomCode(code), nil
}

// lockRoom fetches and locks a live room. The caller must Unlock it.
func (c *Controller) lockRoom(ctx context.Context, code model.RoomCode) (*registry.Room, error) {
	room, err := c.registry.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	room.Lock()
	if room.Removed() {
		room.Unlock()
		return nil, model.ErrSessionNotFound
	}
	return room, nil
}

// commit persists next and makes it the room's session. The caller holds the lock.
func (c *Controller) commit(ctx context.Context, room *registry.Room, next *model.GameSession) error {
	next.UpdatedAt = c.clock.Now()
	if err := c.registry.Save(ctx, next); err != nil {
		c.logger.Error("failed to persist session",
			slog.String("room_code", string(next.RoomCode)),
			slog.String("error", err.Error()),
		)
		return err
	}
	room.Replace(next)
	return nil
}

// newRoom allocates a free room code and registers the session under it
func (c *Controller) newRoom(ctx context.Context, session *model.GameSession) (*registry.Room, error) {
	for attempt := 0; attempt < c.cfg.RoomCodeAttempts; attempt++ {
		code := model.RoomCode(c.random.String(roomCodeLength, roomCodeAlphabet))
		if len(code) != roomCodeLength {
			continue
		}
		exists, err := c.registry.Exists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrPersistenceUnavailable, err)
		}
		if exists {
			continue
		}

		session.RoomCode = code
		room, err := c.registry.Put(ctx, session)
		if errors.Is(err, registry.ErrCodeInUse) {
			continue
		}
		return room, err
	}
	return nil, errors.New("could not allocate a room code")
}

// emit sends an event to each listed player. Players without a live
// connection simply miss it; they resync from the session snapshot on rejoin.
func (c *Controller) emit(to []model.PlayerID, eventType model.EventType, code model.RoomCode, actor model.PlayerID, payload any) {
	event := model.Event{
		Type:      eventType,
		Timestamp: c.clock.Now(),
		RoomCode:  code,
		PlayerID:  actor,
		Payload:   payload,
	}
	for _, p := range to {
		_ = c.presence.Send(p, event)
	}
}

func others(players []model.PlayerID, except model.PlayerID) []model.PlayerID {
	out := make([]model.PlayerID, 0, len(players))
	for _, p := range players {
		if p != except {
			out = append(out, p)
		}
	}
	return out
}

// ControllerInterface is the set of operations exposed to transports
type ControllerInterface interface {
	CreateRoom(ctx context.Context, host model.PlayerID, mode model.GameMode, isPrivate bool) (model.SessionView, error)
	CreateMatch(ctx context.Context, a, b model.Player, mode model.GameMode, matchType model.MatchType) (model.SessionView, error)
	JoinRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (model.SessionView, error)
	SubmitSecretNumber(ctx context.Context, code model.RoomCode, playerID model.PlayerID, number string) (model.SessionView, error)
	SubmitGuess(ctx context.Context, code model.RoomCode, playerID model.PlayerID, guess string) (*GuessOutcome, error)
	PlayerDisconnected(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error
	HandleDisconnect(ctx context.Context, playerID model.PlayerID)
	LeaveRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error
	DeleteGame(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error
	Typing(ctx context.Context, code model.RoomCode, playerID model.PlayerID, isTyping bool, partial string) error
	GetSession(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (model.SessionView, error)
	ListAvailableRooms(ctx context.Context) []model.RoomSummary
	ListMyGames(ctx context.Context, playerID model.PlayerID) ([]model.SessionView, error)
	RestoreTimers(ctx context.Context) (int, error)
}

var _ ControllerInterface = (*Controller)(nil)
