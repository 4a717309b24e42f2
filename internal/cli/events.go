package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream real-time game events over websocket",
		Long: `Connect to the server's websocket endpoint and stream events in real-time.

Events include:
  - playerJoined: Someone joined your room
  - roomReady: Your room is full
  - matchFound: Matchmaking paired you with an opponent
  - gameStarted: Both secrets are in and guessing begins
  - guessSubmitted: A guess was made
  - playerTyping: Your opponent is typing
  - playerDisconnected: A player went away
  - gameEnded: Someone won
  - gameDeleted: The room was removed

While connected you count as online, so ranked forfeit windows do not start.
Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// ServerMessage is a frame pushed by the server
type ServerMessage struct {
	Type      string          `json:"type"`
	Event     string          `json:"event,omitempty"`
	RoomCode  string          `json:"room_code,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func streamEvents(jsonOutput bool) error {
	if cfg.Token == "" {
		return errors.New("not logged in: run 'numduel player guest' or 'numduel player login' first")
	}

	// Set up cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, cfg.WebSocketURL(), header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		select {
		case <-sigCh:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			cancel()
			_ = conn.Close()
		case <-ctx.Done():
		}
	}()

	if !jsonOutput {
		fmt.Println("Connected")
	}

	for {
		var msg ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		if msg.Type != "event" {
			continue
		}
		printEvent(msg, jsonOutput)
	}
}

func printEvent(msg ServerMessage, jsonOutput bool) {
	if jsonOutput {
		jsonData, _ := json.Marshal(msg)
		fmt.Println(string(jsonData))
		return
	}

	timestamp := msg.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	// Truncate data if it's too long for display
	displayData := string(msg.Data)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	displayData = strings.ReplaceAll(displayData, "\n", " ")
	fmt.Printf("[%s] %s %s: %s\n", timestamp.Local().Format("2006-01-02 15:04:05"), msg.RoomCode, msg.Event, displayData)
}
