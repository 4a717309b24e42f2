package notify

import (
	"context"

	"github.com/mcoot/numduel/internal/model"
)

// Kind identifies the lifecycle point a notification was raised for
type Kind string

const (
	KindMatchFound  Kind = "match_found"
	KindYourTurn    Kind = "your_turn"
	KindGameWon     Kind = "game_won"
	KindGameLost    Kind = "game_lost"
	KindGameDeleted Kind = "game_deleted"
)

// Notification is an out-of-band message for a player who may not be connected
type Notification struct {
	Kind     Kind              `json:"kind"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	RoomCode model.RoomCode    `json:"room_code,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// Notifier delivers a notification to a single player
type Notifier interface {
	NotifyUser(ctx context.Context, playerID model.PlayerID, n Notification) error
}

// MatchFound is sent to both players when a session is formed for them
func MatchFound(code model.RoomCode, opponentName string) Notification {
	return Notification{
		Kind:     KindMatchFound,
		Title:    "Match found",
		Body:     "You have been matched against " + opponentName,
		RoomCode: code,
	}
}

// YourTurn is sent to the player whose turn it now is
func YourTurn(code model.RoomCode) Notification {
	return Notification{
		Kind:     KindYourTurn,
		Title:    "Your turn",
		Body:     "Your opponent has guessed. It's your turn.",
		RoomCode: code,
	}
}

// GameWon is sent to the winner of a match
func GameWon(code model.RoomCode, reason string) Notification {
	body := "You cracked the number!"
	if reason == model.EndReasonForfeit {
		body = "Your opponent forfeited. You win!"
	}
	return Notification{
		Kind:     KindGameWon,
		Title:    "You won",
		Body:     body,
		RoomCode: code,
		Data:     map[string]string{"reason": reason},
	}
}

// GameLost is sent to the loser of a match
func GameLost(code model.RoomCode, reason string) Notification {
	body := "Your opponent cracked your number."
	if reason == model.EndReasonForfeit {
		body = "You forfeited by staying away too long."
	}
	return Notification{
		Kind:     KindGameLost,
		Title:    "You lost",
		Body:     body,
		RoomCode: code,
		Data:     map[string]string{"reason": reason},
	}
}

// GameDeleted is sent to members when a session is removed without a result
func GameDeleted(code model.RoomCode) Notification {
	return Notification{
		Kind:     KindGameDeleted,
		Title:    "Game removed",
		Body:     "A game you were in has been deleted.",
		RoomCode: code,
	}
}
