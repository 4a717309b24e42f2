package ws

import (
	"encoding/json"
	"time"

	"github.com/mcoot/numduel/internal/api/apierr"
	"github.com/mcoot/numduel/internal/model"
)

// Request types sent by clients
const (
	TypeCreateRoom         = "createRoom"
	TypeJoinRoom           = "joinRoom"
	TypeListAvailableRooms = "listAvailableRooms"
	TypeListMyGames        = "listMyGames"
	TypeJoinQueue          = "joinQueue"
	TypeLeaveQueue         = "leaveQueue"
	TypeSubmitSecretNumber = "submitSecretNumber"
	TypeSubmitGuess        = "submitGuess"
	TypeLeaveRoom          = "leaveRoom"
	TypeDeleteGame         = "deleteGame"
	TypeTypingUpdate       = "typingUpdate"
	TypePing               = "ping"
)

// Message types sent by the server
const (
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Request is a client message. ID correlates the response.
type Request struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response answers a single Request
type Response struct {
	Type  string           `json:"type"`
	ID    string           `json:"id,omitempty"`
	OK    bool             `json:"ok"`
	Data  any              `json:"data,omitempty"`
	Error *apierr.APIError `json:"error,omitempty"`
}

// EventMessage is an unsolicited server push
type EventMessage struct {
	Type      string          `json:"type"`
	Event     model.EventType `json:"event"`
	RoomCode  model.RoomCode  `json:"room_code,omitempty"`
	Data      any             `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func newEventMessage(event model.Event) EventMessage {
	return EventMessage{
		Type:      TypeEvent,
		Event:     event.Type,
		RoomCode:  event.RoomCode,
		Data:      event.Payload,
		Timestamp: event.Timestamp,
	}
}

// CreateRoomPayload is the payload of createRoom
type CreateRoomPayload struct {
	GameMode  model.GameMode `json:"game_mode"`
	IsPrivate bool           `json:"is_private"`
}

// RoomPayload identifies a room
type RoomPayload struct {
	RoomCode string `json:"room_code"`
}

// JoinQueuePayload is the payload of joinQueue
type JoinQueuePayload struct {
	QueueType model.QueueType `json:"queue_type"`
	GameMode  model.GameMode  `json:"game_mode"`
}

// SecretNumberPayload is the payload of submitSecretNumber
type SecretNumberPayload struct {
	RoomCode string `json:"room_code"`
	Number   string `json:"number"`
}

// GuessPayload is the payload of submitGuess
type GuessPayload struct {
	RoomCode string `json:"room_code"`
	Guess    string `json:"guess"`
}

// TypingPayload is the payload of typingUpdate
type TypingPayload struct {
	RoomCode     string `json:"room_code"`
	IsTyping     bool   `json:"is_typing"`
	PartialInput string `json:"partial_input"`
}

// RoomResult answers createRoom and joinRoom
type RoomResult struct {
	RoomCode model.RoomCode    `json:"room_code"`
	Session  model.SessionView `json:"session"`
}

// QueueResult answers joinQueue and leaveQueue
type QueueResult struct {
	Queued    bool            `json:"queued"`
	QueueType model.QueueType `json:"queue_type,omitempty"`
}
