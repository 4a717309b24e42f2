package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/storage"
)

// ErrCodeInUse is returned by Put when the room code is already registered
var ErrCodeInUse = errors.New("room code already in use")

// Config controls how writes to the store are retried
type Config struct {
	SaveAttempts int
	RetryBackoff time.Duration
}

// DefaultConfig returns the default retry policy
func DefaultConfig() Config {
	return Config{
		SaveAttempts: 3,
		RetryBackoff: 50 * time.Millisecond,
	}
}

// Registry is the in-memory map of live rooms, mirrored to the store
type Registry struct {
	mu    sync.RWMutex
	rooms map[model.RoomCode]*Room

	storage storage.Storage
	cfg     Config
	logger  *slog.Logger
}

// New creates an empty registry
func New(storage storage.Storage, cfg Config, logger *slog.Logger) *Registry {
	if cfg.SaveAttempts <= 0 {
		cfg.SaveAttempts = DefaultConfig().SaveAttempts
	}
	return &Registry{
		rooms:   make(map[model.RoomCode]*Room),
		storage: storage,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// Put persists a new session and registers it.
// The session is not visible to other callers until the write succeeds.
func (r *Registry) Put(ctx context.Context, session *model.GameSession) (*Room, error) {
	r.mu.RLock()
	_, taken := r.rooms[session.RoomCode]
	r.mu.RUnlock()
	if taken {
		return nil, ErrCodeInUse
	}

	if err := r.Save(ctx, session); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.rooms[session.RoomCode]; taken {
		return nil, ErrCodeInUse
	}
	room := newRoom(session)
	r.rooms[session.RoomCode] = room
	return room, nil
}

// Get returns the live room for a code, loading it from the store if the
// process has not seen it yet. Terminal sessions are never loaded.
func (r *Registry) Get(ctx context.Context, code model.RoomCode) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[code]
	r.mu.RUnlock()
	if ok {
		return room, nil
	}

	session, err := r.storage.GetSession(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistenceUnavailable, err)
	}
	if !session.State.IsActive() {
		return nil, model.ErrSessionNotFound
	}

	room, _ = r.adopt(session)
	return room, nil
}

// adopt registers a session loaded from the store unless a live room
// already exists for the code, in which case the live room wins
func (r *Registry) adopt(session *model.GameSession) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rooms[session.RoomCode]; ok {
		return existing, false
	}
	room := newRoom(session)
	r.rooms[session.RoomCode] = room
	return room, true
}

// Exists reports whether a room code is in use, live or stored
func (r *Registry) Exists(ctx context.Context, code model.RoomCode) (bool, error) {
	r.mu.RLock()
	_, ok := r.rooms[code]
	r.mu.RUnlock()
	if ok {
		return true, nil
	}
	return r.storage.SessionExists(ctx, code)
}

// Save writes the session to the store, retrying transient failures.
// Callers hold the room lock so writes for a room never interleave.
func (r *Registry) Save(ctx context.Context, session *model.GameSession) error {
	return r.retry(ctx, "save", session.RoomCode, func() error {
		return r.storage.SaveSession(ctx, session)
	})
}

// Delete removes the room from the store and then from the registry, and
// cancels its timers. The caller must hold the room lock.
// If the store delete fails while the stored session is still active the room
// stays live, since Get would otherwise load the stored copy again.
func (r *Registry) Delete(ctx context.Context, room *Room) error {
	session := room.Session()
	err := r.retry(ctx, "delete", session.RoomCode, func() error {
		return r.storage.DeleteSession(ctx, session)
	})
	if err != nil && session.State.IsActive() {
		return err
	}

	r.mu.Lock()
	if current, ok := r.rooms[room.Code()]; ok && current == room {
		delete(r.rooms, room.Code())
	}
	r.mu.Unlock()

	room.removed = true
	room.StopAllTimers()
	return err
}

// List returns snapshots of every live session
func (r *Registry) List() []*model.GameSession {
	rooms := r.snapshotRooms()
	sessions := make([]*model.GameSession, 0, len(rooms))
	for _, room := range rooms {
		room.Lock()
		if !room.Removed() {
			sessions = append(sessions, room.Session().Clone())
		}
		room.Unlock()
	}
	return sessions
}

// ListByPlayer returns snapshots of the player's waiting, playing and paused
// sessions, including stored sessions not yet loaded into memory
func (r *Registry) ListByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.GameSession, error) {
	seen := make(map[model.RoomCode]bool)
	var sessions []*model.GameSession
	for _, s := range r.List() {
		seen[s.RoomCode] = true
		if s.State.IsActive() && s.IsMember(playerID) {
			sessions = append(sessions, s)
		}
	}

	stored, err := r.storage.FindActiveSessionsByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistenceUnavailable, err)
	}
	for _, s := range stored {
		if seen[s.RoomCode] {
			continue
		}
		room, _ := r.adopt(s)
		sessions = append(sessions, room.Snapshot())
	}
	return sessions, nil
}

// Rehydrate loads every active stored session into memory and returns
// the rooms it registered
func (r *Registry) Rehydrate(ctx context.Context) ([]*Room, error) {
	stored, err := r.storage.ListActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	var loaded []*Room
	for _, s := range stored {
		if room, added := r.adopt(s); added {
			loaded = append(loaded, room)
		}
	}

	r.logger.Info("sessions rehydrated", slog.Int("count", len(loaded)))
	return loaded, nil
}

// StopTimers cancels every room's forfeit timers without touching the
// sessions. Used at shutdown; the next process restarts the windows.
func (r *Registry) StopTimers() {
	for _, room := range r.snapshotRooms() {
		room.Lock()
		room.StopAllTimers()
		room.Unlock()
	}
}

// Len returns the number of live rooms
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// snapshotRooms copies the room set so room locks are never taken under the registry lock
func (r *Registry) snapshotRooms() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *Registry) retry(ctx context.Context, op string, code model.RoomCode, fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.cfg.SaveAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		r.logger.Warn("store write failed",
			slog.String("op", op),
			slog.String("room_code", string(code)),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt == r.cfg.SaveAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", model.ErrPersistenceUnavailable, ctx.Err())
		case <-time.After(r.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("%w: %w", model.ErrPersistenceUnavailable, err)
}
