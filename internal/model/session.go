package model

import (
	"slices"
	"time"
)

// RoomCode is the external-facing identifier of a game session
type RoomCode string

// MaxPlayers is the number of players in every session
const MaxPlayers = 2

// NumberLength is the number of digits in secrets and guesses
const NumberLength = 5

// SessionState represents the current phase of a game session
type SessionState string

const (
	SessionStateWaiting   SessionState = "waiting"   // Waiting for players or secret numbers
	SessionStatePlaying   SessionState = "playing"   // Players are guessing
	SessionStatePaused    SessionState = "paused"    // A member stepped away from a non-ranked game
	SessionStateFinished  SessionState = "finished"  // Someone won, naturally or by forfeit
	SessionStateAbandoned SessionState = "abandoned" // Ended without a winner
)

// IsTerminal reports whether no further transitions are possible
func (s SessionState) IsTerminal() bool {
	return s == SessionStateFinished || s == SessionStateAbandoned
}

// IsActive reports whether the session still counts as an active game
func (s SessionState) IsActive() bool {
	return s == SessionStateWaiting || s == SessionStatePlaying || s == SessionStatePaused
}

// GameMode controls how much feedback a guess discloses
type GameMode string

const (
	GameModeStandard GameMode = "standard"
	GameModeHard     GameMode = "hard"
)

// Valid reports whether the mode is known
func (m GameMode) Valid() bool {
	return m == GameModeStandard || m == GameModeHard
}

// MatchType records how the session was formed
type MatchType string

const (
	MatchTypeCasual  MatchType = "casual"
	MatchTypeRanked  MatchType = "ranked"
	MatchTypePrivate MatchType = "private"
)

// Feedback is the information disclosed to the guessing player.
// Standard mode sets Misplaced and OutOfPlace, hard mode sets TotalCorrect.
type Feedback struct {
	Exact        int  `json:"exact"`
	Misplaced    *int `json:"misplaced,omitempty"`
	OutOfPlace   *int `json:"out_of_place,omitempty"`
	TotalCorrect *int `json:"total_correct,omitempty"`
}

// IsWin reports whether every digit was in place
func (f Feedback) IsWin() bool {
	return f.Exact == NumberLength
}

// GuessEntry is one accepted guess
type GuessEntry struct {
	PlayerID  PlayerID  `json:"player_id"`
	Guess     string    `json:"guess"`
	Feedback  Feedback  `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}

// GameSession is the authoritative state of one match
type GameSession struct {
	RoomCode      RoomCode
	Host          PlayerID
	Players       []PlayerID // Ordered; index 0 guesses first
	PlayerNames   map[PlayerID]string
	State         SessionState
	Mode          GameMode
	MatchType     MatchType
	IsPrivate     bool
	SecretNumbers map[PlayerID]string
	CurrentTurn   PlayerID
	GuessHistory  []GuessEntry
	Winner        PlayerID

	// Connected is the set of members currently attached to this room
	Connected map[PlayerID]bool
	// Departed is the set of members who explicitly left the room
	Departed map[PlayerID]bool

	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
	UpdatedAt time.Time
}

// IsMember returns true if the player is one of the session's players
func (s *GameSession) IsMember(playerID PlayerID) bool {
	return slices.Contains(s.Players, playerID)
}

// IsFull returns true if no more players can join
func (s *GameSession) IsFull() bool {
	return len(s.Players) >= MaxPlayers
}

// Opponent returns the other player, or "" if there is none
func (s *GameSession) Opponent(playerID PlayerID) PlayerID {
	for _, p := range s.Players {
		if p != playerID {
			return p
		}
	}
	return ""
}

// ConnectedCount returns the number of members attached to the room
func (s *GameSession) ConnectedCount() int {
	count := 0
	for _, p := range s.Players {
		if s.Connected[p] {
			count++
		}
	}
	return count
}

// AllDeparted returns true if every member explicitly left
func (s *GameSession) AllDeparted() bool {
	for _, p := range s.Players {
		if !s.Departed[p] {
			return false
		}
	}
	return len(s.Players) > 0
}

// SecretsComplete returns true once every player has a secret number
func (s *GameSession) SecretsComplete() bool {
	return len(s.Players) == MaxPlayers && len(s.SecretNumbers) == MaxPlayers
}

// Clone returns a deep copy of the session
func (s *GameSession) Clone() *GameSession {
	c := *s
	c.Players = slices.Clone(s.Players)
	c.GuessHistory = slices.Clone(s.GuessHistory)
	c.PlayerNames = cloneMap(s.PlayerNames)
	c.SecretNumbers = cloneMap(s.SecretNumbers)
	c.Connected = cloneMap(s.Connected)
	c.Departed = cloneMap(s.Departed)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SessionView is the client-facing snapshot of a session.
// Secret numbers are only revealed once the session has ended.
type SessionView struct {
	RoomCode         RoomCode            `json:"room_code"`
	Host             PlayerID            `json:"host"`
	Players          []PlayerID          `json:"players"`
	PlayerNames      map[PlayerID]string `json:"player_names"`
	MaxPlayers       int                 `json:"max_players"`
	State            SessionState        `json:"state"`
	Mode             GameMode            `json:"mode"`
	MatchType        MatchType           `json:"match_type"`
	IsPrivate        bool                `json:"is_private"`
	SecretsSubmitted map[PlayerID]bool   `json:"secrets_submitted"`
	RevealedSecrets  map[PlayerID]string `json:"revealed_secrets,omitempty"`
	CurrentTurn      PlayerID            `json:"current_turn,omitempty"`
	GuessHistory     []GuessEntry        `json:"guess_history"`
	Winner           PlayerID            `json:"winner,omitempty"`
	Connected        map[PlayerID]bool   `json:"connected"`
	CreatedAt        time.Time           `json:"created_at"`
	StartedAt        *time.Time          `json:"started_at,omitempty"`
	EndedAt          *time.Time          `json:"ended_at,omitempty"`
}

// Public builds the client-facing view of the session
func (s *GameSession) Public() SessionView {
	submitted := make(map[PlayerID]bool, len(s.Players))
	connected := make(map[PlayerID]bool, len(s.Players))
	for _, p := range s.Players {
		_, submitted[p] = s.SecretNumbers[p]
		connected[p] = s.Connected[p]
	}

	view := SessionView{
		RoomCode:         s.RoomCode,
		Host:             s.Host,
		Players:          slices.Clone(s.Players),
		PlayerNames:      cloneMap(s.PlayerNames),
		MaxPlayers:       MaxPlayers,
		State:            s.State,
		Mode:             s.Mode,
		MatchType:        s.MatchType,
		IsPrivate:        s.IsPrivate,
		SecretsSubmitted: submitted,
		CurrentTurn:      s.CurrentTurn,
		GuessHistory:     slices.Clone(s.GuessHistory),
		Winner:           s.Winner,
		Connected:        connected,
		CreatedAt:        s.CreatedAt,
	}
	if view.GuessHistory == nil {
		view.GuessHistory = []GuessEntry{}
	}
	if s.State.IsTerminal() {
		view.RevealedSecrets = cloneMap(s.SecretNumbers)
	}
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		view.StartedAt = &t
	}
	if !s.EndedAt.IsZero() {
		t := s.EndedAt
		view.EndedAt = &t
	}
	return view
}

// RoomSummary is a lobby-list entry for a joinable room
type RoomSummary struct {
	RoomCode   RoomCode `json:"room_code"`
	HostName   string   `json:"host_name"`
	Players    int      `json:"players"`
	MaxPlayers int      `json:"max_players"`
	Mode       GameMode `json:"mode"`
}
