package presence

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/numduel/internal/model"
)

// ErrNotConnected is returned by Send when the player has no live connection
var ErrNotConnected = errors.New("player not connected")

// Conn is a live connection handle for one authenticated player
type Conn interface {
	// ID is unique per handle; a reconnect produces a new ID
	ID() string
	PlayerID() model.PlayerID
	// Send queues an event without blocking
	Send(event model.Event) error
	Close() error
}

// DisconnectHook runs after a player's current connection is unregistered
type DisconnectHook func(playerID model.PlayerID)

// Registry maps each player to at most one live connection
type Registry struct {
	mu      sync.RWMutex
	conns   map[model.PlayerID]Conn
	hooks   []DisconnectHook
	closing bool

	logger *slog.Logger
}

// NewRegistry creates an empty connection registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[model.PlayerID]Conn),
		logger: logger.With(slog.String("component", "presence")),
	}
}

// OnDisconnect adds a hook run when a player loses their current connection.
// Hooks must be added before connections are registered.
func (r *Registry) OnDisconnect(hook DisconnectHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Register makes conn the player's current connection.
// A different handle already registered for the player is closed.
// After CloseAll the connection is closed straight away.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		_ = conn.Close()
		return
	}
	previous, exists := r.conns[conn.PlayerID()]
	r.conns[conn.PlayerID()] = conn
	r.mu.Unlock()

	if exists && previous.ID() != conn.ID() {
		r.logger.Info("connection superseded",
			slog.String("player_id", string(conn.PlayerID())),
			slog.String("old_conn", previous.ID()),
			slog.String("new_conn", conn.ID()),
		)
		_ = previous.Close()
		return
	}

	if !exists {
		r.logger.Info("player connected",
			slog.String("player_id", string(conn.PlayerID())),
			slog.String("conn_id", conn.ID()),
		)
	}
}

// Unregister removes conn if it is still the player's current connection
// and runs the disconnect hooks. It returns false for superseded handles.
// Connections dropped by CloseAll skip the hooks: the server is going away,
// not the player, and their games must survive the restart.
func (r *Registry) Unregister(conn Conn) bool {
	r.mu.Lock()
	current, exists := r.conns[conn.PlayerID()]
	if !exists || current.ID() != conn.ID() {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, conn.PlayerID())
	var hooks []DisconnectHook
	if !r.closing {
		hooks = make([]DisconnectHook, len(r.hooks))
		copy(hooks, r.hooks)
	}
	r.mu.Unlock()

	r.logger.Info("player disconnected",
		slog.String("player_id", string(conn.PlayerID())),
		slog.String("conn_id", conn.ID()),
	)

	for _, hook := range hooks {
		hook(conn.PlayerID())
	}
	return true
}

// Lookup returns the player's current connection
func (r *Registry) Lookup(playerID model.PlayerID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[playerID]
	return conn, ok
}

// IsConnected reports whether the player has a live connection
func (r *Registry) IsConnected(playerID model.PlayerID) bool {
	_, ok := r.Lookup(playerID)
	return ok
}

// Send queues an event for the player's current connection
func (r *Registry) Send(playerID model.PlayerID, event model.Event) error {
	conn, ok := r.Lookup(playerID)
	if !ok {
		return ErrNotConnected
	}
	if err := conn.Send(event); err != nil {
		r.logger.Warn("failed to queue event",
			slog.String("player_id", string(playerID)),
			slog.String("event", string(event.Type)),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// Count returns the number of connected players
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every registered connection and refuses new ones.
// Used at shutdown; disconnect hooks no longer run afterwards.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closing = true
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
