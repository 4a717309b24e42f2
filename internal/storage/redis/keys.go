package redis

import (
	"fmt"

	"github.com/mcoot/numduel/internal/model"
)

// Key prefix for all numduel data
const keyPrefix = "numduel"

// playerKey returns the Redis key for a Player profile
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// playerStatsKey returns the Redis key for the HASH of a player's counters
func playerStatsKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player_stats:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// sessionKey returns the Redis key for a GameSession
func sessionKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, code)
}

// playerSessionsIndexKey returns the Redis key for the SET of session keys a player belongs to
func playerSessionsIndexKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_sessions:%s", keyPrefix, playerID)
}

// activeSessionsIndexKey returns the Redis key for the SET of all non-terminal session keys
func activeSessionsIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", keyPrefix)
}
