package model

import "time"

// QueueType identifies a matchmaking queue
type QueueType string

const (
	QueueTypeCasual QueueType = "casual"
	QueueTypeRanked QueueType = "ranked"
)

// Valid reports whether the queue type is known
func (q QueueType) Valid() bool {
	return q == QueueTypeCasual || q == QueueTypeRanked
}

// MatchType returns the session match type produced by this queue
func (q QueueType) MatchType() MatchType {
	if q == QueueTypeRanked {
		return MatchTypeRanked
	}
	return MatchTypeCasual
}

// QueueEntry is a player waiting for an opponent
type QueueEntry struct {
	Player     Player
	Rating     int // Only meaningful in the ranked queue
	Mode       GameMode
	EnqueuedAt time.Time
}
