package response

import (
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
	Rating      int    `json:"rating"`
	XP          int    `json:"xp"`
	Coins       int    `json:"coins"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	GamesPlayed int    `json:"games_played"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
		Rating:      p.Rating,
		XP:          p.XP,
		Coins:       p.Coins,
		Wins:        p.Wins,
		Losses:      p.Losses,
		GamesPlayed: p.GamesPlayed,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
	}
}

// Room is the response for room creation and joining
type Room struct {
	RoomCode model.RoomCode    `json:"room_code"`
	Session  model.SessionView `json:"session"`
}

// RoomList is the response for listing joinable rooms
type RoomList struct {
	Rooms []model.RoomSummary `json:"rooms"`
}

// GameList is the response for listing a player's games
type GameList struct {
	Games []model.SessionView `json:"games"`
}

// Queue is the response for queue operations
type Queue struct {
	Queued    bool            `json:"queued"`
	QueueType model.QueueType `json:"queue_type,omitempty"`
}

// Health is the response for the health endpoint
type Health struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	ActiveRooms int    `json:"active_rooms"`
	Connected   int    `json:"connected_players"`
}
