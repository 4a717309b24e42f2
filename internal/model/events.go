package model

import "time"

// EventType identifies the type of event pushed to a client
type EventType string

const (
	EventPlayerJoined       EventType = "playerJoined"
	EventRoomReady          EventType = "roomReady"
	EventMatchFound         EventType = "matchFound"
	EventGameStarted        EventType = "gameStarted"
	EventGuessSubmitted     EventType = "guessSubmitted"
	EventGameEnded          EventType = "gameEnded"
	EventGameDeleted        EventType = "gameDeleted"
	EventPlayerDisconnected EventType = "playerDisconnected"
	EventPlayerTyping       EventType = "playerTyping"
)

// Event is the base structure for all events
type Event struct {
	Type      EventType
	Timestamp time.Time
	RoomCode  RoomCode
	PlayerID  PlayerID // The player who triggered or is affected
	Payload   any      // Type-specific data
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	PlayerID    PlayerID `json:"player_id"`
	DisplayName string   `json:"display_name"`
	RoomCode    RoomCode `json:"room_code"`
}

// RoomReadyPayload is sent once the room has both players
type RoomReadyPayload struct {
	RoomCode RoomCode   `json:"room_code"`
	Players  []PlayerID `json:"players"`
}

// MatchFoundPayload is sent to each matched player
type MatchFoundPayload struct {
	RoomCode     RoomCode    `json:"room_code"`
	OpponentName string      `json:"opponent_name"`
	Session      SessionView `json:"session"`
}

// GameStartedPayload contains data for game started events
type GameStartedPayload struct {
	RoomCode    RoomCode `json:"room_code"`
	CurrentTurn PlayerID `json:"current_turn"`
	Mode        GameMode `json:"mode"`
}

// GuessSubmittedPayload contains data for guess events
type GuessSubmittedPayload struct {
	RoomCode    RoomCode     `json:"room_code"`
	Entry       GuessEntry   `json:"guess_entry"`
	CurrentTurn PlayerID     `json:"current_turn"`
	State       SessionState `json:"state"`
}

// GameEndedPayload contains the final session snapshot
type GameEndedPayload struct {
	RoomCode RoomCode    `json:"room_code"`
	Winner   PlayerID    `json:"winner,omitempty"`
	Reason   string      `json:"reason"`
	Session  SessionView `json:"session"`
}

// GameDeletedPayload is sent when a session is removed without a result
type GameDeletedPayload struct {
	RoomCode RoomCode `json:"room_code"`
}

// PlayerDisconnectedPayload contains data for disconnect events
type PlayerDisconnectedPayload struct {
	PlayerID PlayerID     `json:"player_id"`
	RoomCode RoomCode     `json:"room_code"`
	State    SessionState `json:"state"`
}

// PlayerTypingPayload relays typing indicators to the opponent
type PlayerTypingPayload struct {
	PlayerID     PlayerID `json:"player_id"`
	IsTyping     bool     `json:"is_typing"`
	PartialInput string   `json:"partial_input"`
}

// End reasons carried by GameEndedPayload
const (
	EndReasonSolved  = "solved"
	EndReasonForfeit = "forfeit"
)
