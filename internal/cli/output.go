package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case RoomList:
		o.printRoomList(v)
	case RoomResult:
		o.printSession(v.Session)
	case Session:
		o.printSession(v)
	case GameList:
		o.printGameList(v)
	case GuessResult:
		o.printGuessResult(v)
	case QueueResult:
		o.printQueueResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
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

// AuthResult combines player and token
type AuthResult struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// RoomSummary is a joinable room
type RoomSummary struct {
	RoomCode   string `json:"room_code"`
	HostName   string `json:"host_name"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	Mode       string `json:"mode"`
}

// RoomList response type
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Feedback is what a guess disclosed
type Feedback struct {
	Exact        int  `json:"exact"`
	Misplaced    *int `json:"misplaced,omitempty"`
	OutOfPlace   *int `json:"out_of_place,omitempty"`
	TotalCorrect *int `json:"total_correct,omitempty"`
}

// GuessEntry is one accepted guess
type GuessEntry struct {
	PlayerID  string    `json:"player_id"`
	Guess     string    `json:"guess"`
	Feedback  Feedback  `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}

// Session response type
type Session struct {
	RoomCode         string            `json:"room_code"`
	Host             string            `json:"host"`
	Players          []string          `json:"players"`
	PlayerNames      map[string]string `json:"player_names"`
	State            string            `json:"state"`
	Mode             string            `json:"mode"`
	MatchType        string            `json:"match_type"`
	IsPrivate        bool              `json:"is_private"`
	SecretsSubmitted map[string]bool   `json:"secrets_submitted"`
	RevealedSecrets  map[string]string `json:"revealed_secrets,omitempty"`
	CurrentTurn      string            `json:"current_turn,omitempty"`
	GuessHistory     []GuessEntry      `json:"guess_history"`
	Winner           string            `json:"winner,omitempty"`
	Connected        map[string]bool   `json:"connected"`
}

// RoomResult response type for create and join
type RoomResult struct {
	RoomCode string  `json:"room_code"`
	Session  Session `json:"session"`
}

// GameList response type
type GameList struct {
	Games []Session `json:"games"`
}

// GuessResult response type
type GuessResult struct {
	Feedback Feedback `json:"feedback"`
	Session  Session  `json:"session"`
}

// QueueResult response type
type QueueResult struct {
	Queued    bool   `json:"queued"`
	QueueType string `json:"queue_type,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Storage     string `json:"storage"`
	ActiveRooms int    `json:"active_rooms"`
	Connected   int    `json:"connected_players"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
	fmt.Printf("Rating: %d\n", p.Rating)
	fmt.Printf("Record: %d won, %d lost, %d played\n", p.Wins, p.Losses, p.GamesPlayed)
	fmt.Printf("XP: %d  Coins: %d\n", p.XP, p.Coins)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Println("No open rooms")
		return
	}
	fmt.Printf("Open rooms (%d):\n", len(l.Rooms))
	for _, r := range l.Rooms {
		fmt.Printf("  %s  %-8s host: %s (%d/%d)\n", r.RoomCode, r.Mode, r.HostName, r.Players, r.MaxPlayers)
	}
}

func (o *Output) name(s Session, id string) string {
	if n, ok := s.PlayerNames[id]; ok && n != "" {
		return n
	}
	return id
}

func (o *Output) printSession(s Session) {
	fmt.Printf("Room: %s\n", s.RoomCode)
	fmt.Printf("State: %s\n", s.State)
	fmt.Printf("Mode: %s (%s)\n", s.Mode, s.MatchType)

	fmt.Printf("Players (%d):\n", len(s.Players))
	for _, p := range s.Players {
		var flags []string
		if p == s.Host {
			flags = append(flags, "host")
		}
		if s.SecretsSubmitted[p] {
			flags = append(flags, "secret set")
		}
		if !s.Connected[p] {
			flags = append(flags, "away")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Printf("  - %s (%s)%s\n", o.name(s, p), p, suffix)
	}

	if s.CurrentTurn != "" && s.State == "playing" {
		fmt.Printf("Turn: %s\n", o.name(s, s.CurrentTurn))
	}

	if len(s.GuessHistory) > 0 {
		fmt.Println("\nGuesses:")
		for _, g := range s.GuessHistory {
			fmt.Printf("  %-10s %s  %s\n", o.name(s, g.PlayerID), g.Guess, formatFeedback(g.Feedback))
		}
	}

	if s.Winner != "" {
		fmt.Printf("\nWinner: %s\n", o.name(s, s.Winner))
	}
	if len(s.RevealedSecrets) > 0 {
		ids := make([]string, 0, len(s.RevealedSecrets))
		for id := range s.RevealedSecrets {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("Secret (%s): %s\n", o.name(s, id), s.RevealedSecrets[id])
		}
	}
}

func (o *Output) printGameList(l GameList) {
	if len(l.Games) == 0 {
		fmt.Println("No active games")
		return
	}
	for _, g := range l.Games {
		var names []string
		for _, p := range g.Players {
			names = append(names, o.name(g, p))
		}
		fmt.Printf("  %s  %-8s %-9s %s\n", g.RoomCode, g.MatchType, g.State, strings.Join(names, " vs "))
	}
}

func formatFeedback(f Feedback) string {
	if f.TotalCorrect != nil {
		return fmt.Sprintf("exact %d, correct digits %d", f.Exact, *f.TotalCorrect)
	}
	misplaced, out := 0, 0
	if f.Misplaced != nil {
		misplaced = *f.Misplaced
	}
	if f.OutOfPlace != nil {
		out = *f.OutOfPlace
	}
	return fmt.Sprintf("exact %d, misplaced %d, absent %d", f.Exact, misplaced, out)
}

func (o *Output) printGuessResult(r GuessResult) {
	fmt.Printf("Feedback: %s\n", formatFeedback(r.Feedback))
	if r.Feedback.Exact == 5 {
		fmt.Println("Number cracked!")
		return
	}
	fmt.Printf("Next turn: %s\n", o.name(r.Session, r.Session.CurrentTurn))
}

func (o *Output) printQueueResult(q QueueResult) {
	if q.Queued {
		fmt.Printf("Queued: %s\n", q.QueueType)
		return
	}
	fmt.Println("Not queued")
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Storage: %s\n", h.Storage)
	fmt.Printf("Active rooms: %d\n", h.ActiveRooms)
	fmt.Printf("Connected players: %d\n", h.Connected)
}
