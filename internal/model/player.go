package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// DefaultRating is the skill rating assigned to new players
const DefaultRating = 1000

// Player represents a game participant
type Player struct {
	ID          PlayerID
	DisplayName string
	IsGuest     bool // true for unregistered players
	Rating      int
	XP          int
	Coins       int
	Wins        int
	Losses      int
	GamesPlayed int
	CreatedAt   time.Time
}

// StatsDelta is a set of increments applied to a player's stats.
// Stores apply it atomically; callers never read-modify-write.
type StatsDelta struct {
	Rating      int
	XP          int
	Coins       int
	Wins        int
	Losses      int
	GamesPlayed int
}

// IsZero reports whether the delta changes nothing
func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

// Apply adds the delta to the player's stats in place
func (p *Player) Apply(d StatsDelta) {
	p.Rating += d.Rating
	p.XP += d.XP
	p.Coins += d.Coins
	p.Wins += d.Wins
	p.Losses += d.Losses
	p.GamesPlayed += d.GamesPlayed
}

// RegisteredPlayer extends Player with authentication data
// Stored separately for security (password never in memory with session)
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
