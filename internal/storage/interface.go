package storage

import (
	"context"

	"github.com/mcoot/numduel/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error
	// IncrementPlayerStats applies the delta atomically at the store
	IncrementPlayerStats(ctx context.Context, id model.PlayerID, delta model.StatsDelta) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Game session operations
	SaveSession(ctx context.Context, session *model.GameSession) error
	GetSession(ctx context.Context, code model.RoomCode) (*model.GameSession, error)
	DeleteSession(ctx context.Context, session *model.GameSession) error
	SessionExists(ctx context.Context, code model.RoomCode) (bool, error)
	FindActiveSessionsByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.GameSession, error)
	ListActiveSessions(ctx context.Context) ([]*model.GameSession, error)
}
