package registry

import (
	"sync"

	"github.com/mcoot/numduel/internal/dependencies/clock"
	"github.com/mcoot/numduel/internal/model"
)

// Room owns one session and serializes every mutation of it.
// All methods except Snapshot require the caller to hold the lock.
type Room struct {
	mu      sync.Mutex
	code    model.RoomCode
	session *model.GameSession
	timers  map[model.PlayerID]clock.Timer
	removed bool
}

func newRoom(session *model.GameSession) *Room {
	return &Room{
		code:    session.RoomCode,
		session: session,
		timers:  make(map[model.PlayerID]clock.Timer),
	}
}

// Code returns the room code. Safe without the lock.
func (r *Room) Code() model.RoomCode {
	return r.code
}

// Lock acquires the room
func (r *Room) Lock() {
	r.mu.Lock()
}

// Unlock releases the room
func (r *Room) Unlock() {
	r.mu.Unlock()
}

// Session returns the committed session. Callers must not mutate it;
// clone, modify and Replace instead.
func (r *Room) Session() *model.GameSession {
	return r.session
}

// Replace swaps in a new committed session
func (r *Room) Replace(session *model.GameSession) {
	r.session = session
}

// Snapshot returns a deep copy of the session, taking the lock itself
func (r *Room) Snapshot() *model.GameSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Clone()
}

// Removed reports whether the room has been deleted from the registry.
// A removed room rejects every operation.
func (r *Room) Removed() bool {
	return r.removed
}

// SetTimer registers the forfeit timer for a player, stopping any previous one
func (r *Room) SetTimer(playerID model.PlayerID, t clock.Timer) {
	if prev, ok := r.timers[playerID]; ok {
		prev.Stop()
	}
	r.timers[playerID] = t
}

// StopTimer cancels and forgets the player's timer. It reports whether one existed.
func (r *Room) StopTimer(playerID model.PlayerID) bool {
	t, ok := r.timers[playerID]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.timers, playerID)
	return true
}

// IsCurrentTimer reports whether t is still the registered timer for the player
func (r *Room) IsCurrentTimer(playerID model.PlayerID, t clock.Timer) bool {
	current, ok := r.timers[playerID]
	return ok && current == t
}

// HasTimer reports whether the player has a pending timer
func (r *Room) HasTimer(playerID model.PlayerID) bool {
	_, ok := r.timers[playerID]
	return ok
}

// StopAllTimers cancels every pending timer
func (r *Room) StopAllTimers() {
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
