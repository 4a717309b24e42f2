package factory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/notify"
)

// recordingConn is a presence connection that keeps every event it is sent
type recordingConn struct {
	id       string
	playerID model.PlayerID

	mu     sync.Mutex
	events []model.Event
	closed bool
}

func newRecordingConn(playerID model.PlayerID) *recordingConn {
	return &recordingConn{id: uuid.NewString(), playerID: playerID}
}

func (c *recordingConn) ID() string               { return c.id }
func (c *recordingConn) PlayerID() model.PlayerID { return c.playerID }

func (c *recordingConn) Send(event model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) types() []model.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]model.EventType, len(c.events))
	for i, e := range c.events {
		types[i] = e.Type
	}
	return types
}

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context

	alice, bob         model.PlayerID
	aliceConn, bobConn *recordingConn
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()

	alice, err := s.app.AuthService.CreateGuestPlayer(s.ctx, "Alice")
	s.Require().NoError(err)
	bob, err := s.app.AuthService.CreateGuestPlayer(s.ctx, "Bob")
	s.Require().NoError(err)
	s.alice, s.bob = alice.PlayerID, bob.PlayerID

	s.aliceConn = newRecordingConn(s.alice)
	s.bobConn = newRecordingConn(s.bob)
	s.app.Presence.Register(s.aliceConn)
	s.app.Presence.Register(s.bobConn)
}

func (s *IntegrationSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

func (s *IntegrationSuite) stats(id model.PlayerID) *model.Player {
	p, err := s.app.PlayerService.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	return p
}

// Test: Complete casual game from room creation to a win
func (s *IntegrationSuite) TestCasualGameFlow() {
	s.app.QueueRoomCodes("ROOM01")

	// Step 1: Alice opens a public room and Bob finds it in the list
	view, err := s.app.GameController.CreateRoom(s.ctx, s.alice, model.GameModeStandard, false)
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ROOM01"), view.RoomCode)

	rooms := s.app.GameController.ListAvailableRooms(s.ctx)
	s.Require().Len(rooms, 1)
	s.Equal("Alice", rooms[0].HostName)

	// Step 2: Bob joins and the room fills
	view, err = s.app.GameController.JoinRoom(s.ctx, "ROOM01", s.bob)
	s.Require().NoError(err)
	s.Len(view.Players, 2)
	s.Empty(s.app.GameController.ListAvailableRooms(s.ctx))
	s.Contains(s.aliceConn.types(), model.EventRoomReady)

	// Step 3: Both secrets start the game with the host to guess
	_, err = s.app.GameController.SubmitSecretNumber(s.ctx, "ROOM01", s.alice, "12345")
	s.Require().NoError(err)
	view, err = s.app.GameController.SubmitSecretNumber(s.ctx, "ROOM01", s.bob, "67890")
	s.Require().NoError(err)
	s.Equal(model.SessionStatePlaying, view.State)
	s.Equal(s.alice, view.CurrentTurn)
	s.Contains(s.bobConn.types(), model.EventGameStarted)

	// Step 4: Guesses alternate until Alice cracks the number
	outcome, err := s.app.GameController.SubmitGuess(s.ctx, "ROOM01", s.alice, "13579")
	s.Require().NoError(err)
	s.False(outcome.Feedback.IsWin())
	s.Equal(s.bob, outcome.Session.CurrentTurn)

	_, err = s.app.GameController.SubmitGuess(s.ctx, "ROOM01", s.alice, "67890")
	s.ErrorIs(err, model.ErrNotYourTurn)

	_, err = s.app.GameController.SubmitGuess(s.ctx, "ROOM01", s.bob, "11111")
	s.Require().NoError(err)

	outcome, err = s.app.GameController.SubmitGuess(s.ctx, "ROOM01", s.alice, "67890")
	s.Require().NoError(err)
	s.True(outcome.Feedback.IsWin())
	s.Equal(model.SessionStateFinished, outcome.Session.State)
	s.Equal(s.alice, outcome.Session.Winner)
	s.Equal("12345", outcome.Session.RevealedSecrets[s.alice])

	// Step 5: Stats reflect a casual result
	winner := s.stats(s.alice)
	s.Equal(1, winner.Wins)
	s.Equal(50, winner.XP)
	s.Equal(20, winner.Coins)
	s.Equal(model.DefaultRating, winner.Rating)

	loser := s.stats(s.bob)
	s.Equal(1, loser.Losses)
	s.Equal(10, loser.XP)

	s.app.Notifications.Wait()
	s.Contains(s.app.MockNotifier.SentTo(s.alice), notify.KindGameWon)
	s.Contains(s.app.MockNotifier.SentTo(s.bob), notify.KindGameLost)
	s.Contains(s.bobConn.types(), model.EventGameEnded)
}

// Test: Ranked queue pairs two players and a long disconnect forfeits
func (s *IntegrationSuite) TestRankedMatchAndForfeit() {
	s.app.QueueRoomCodes("RANK01")

	// Step 1: Both players queue for ranked; the second join makes the match
	s.Require().NoError(s.app.Matchmaking.Join(s.ctx, s.alice, model.QueueTypeRanked, model.GameModeStandard))
	_, queued := s.app.Matchmaking.Queued(s.alice)
	s.True(queued)

	s.Require().NoError(s.app.Matchmaking.Join(s.ctx, s.bob, model.QueueTypeRanked, model.GameModeStandard))
	_, queued = s.app.Matchmaking.Queued(s.alice)
	s.False(queued)
	s.Equal(0, s.app.Matchmaking.Len(model.QueueTypeRanked))

	view, err := s.app.GameController.GetSession(s.ctx, "RANK01", s.alice)
	s.Require().NoError(err)
	s.Equal(model.MatchTypeRanked, view.MatchType)
	s.Contains(s.aliceConn.types(), model.EventMatchFound)
	s.Contains(s.bobConn.types(), model.EventMatchFound)

	_, err = s.app.GameController.SubmitSecretNumber(s.ctx, "RANK01", s.alice, "12345")
	s.Require().NoError(err)
	_, err = s.app.GameController.SubmitSecretNumber(s.ctx, "RANK01", s.bob, "67890")
	s.Require().NoError(err)

	// Step 2: Bob's connection drops; the presence hook starts his forfeit window
	s.True(s.app.Presence.Unregister(s.bobConn))
	s.Equal(1, s.app.MockClock.PendingTimers())

	view, err = s.app.GameController.GetSession(s.ctx, "RANK01", s.alice)
	s.Require().NoError(err)
	s.False(view.Connected[s.bob])
	s.Contains(s.aliceConn.types(), model.EventPlayerDisconnected)

	// Step 3: The window closes and Alice wins by forfeit
	s.app.MockClock.Advance(59 * time.Second)
	view, err = s.app.GameController.GetSession(s.ctx, "RANK01", s.alice)
	s.Require().NoError(err)
	s.Equal(model.SessionStatePlaying, view.State)

	s.app.MockClock.Advance(time.Second)
	s.Contains(s.aliceConn.types(), model.EventGameEnded)
	_, err = s.app.GameController.GetSession(s.ctx, "RANK01", s.alice)
	s.ErrorIs(err, model.ErrSessionNotFound)
	s.Equal(0, s.app.Registry.Len())

	s.Equal(model.DefaultRating+25, s.stats(s.alice).Rating)
	s.Equal(model.DefaultRating-25, s.stats(s.bob).Rating)
	s.Equal(40, s.stats(s.alice).Coins)
}

// Test: Reconnecting inside the forfeit window keeps the game alive
func (s *IntegrationSuite) TestRankedReconnectCancelsForfeit() {
	s.app.QueueRoomCodes("RANK02")
	s.Require().NoError(s.app.Matchmaking.Join(s.ctx, s.alice, model.QueueTypeRanked, model.GameModeHard))
	s.Require().NoError(s.app.Matchmaking.Join(s.ctx, s.bob, model.QueueTypeRanked, model.GameModeHard))

	s.app.Presence.Unregister(s.bobConn)
	s.Equal(1, s.app.MockClock.PendingTimers())

	s.app.MockClock.Advance(30 * time.Second)
	s.bobConn = newRecordingConn(s.bob)
	s.app.Presence.Register(s.bobConn)
	view, err := s.app.GameController.JoinRoom(s.ctx, "RANK02", s.bob)
	s.Require().NoError(err)
	s.True(view.Connected[s.bob])
	s.Equal(0, s.app.MockClock.PendingTimers())

	s.app.MockClock.Advance(time.Minute)
	view, err = s.app.GameController.GetSession(s.ctx, "RANK02", s.bob)
	s.Require().NoError(err)
	s.Equal(model.SessionStateWaiting, view.State)
	s.Equal(model.GameModeHard, view.Mode)
}

// Test: Losing the connection also leaves the matchmaking queue
func (s *IntegrationSuite) TestDisconnectLeavesQueue() {
	s.Require().NoError(s.app.Matchmaking.Join(s.ctx, s.alice, model.QueueTypeCasual, model.GameModeStandard))
	s.Equal(1, s.app.Matchmaking.Len(model.QueueTypeCasual))

	s.app.Presence.Unregister(s.aliceConn)

	s.Equal(0, s.app.Matchmaking.Len(model.QueueTypeCasual))
	s.False(s.app.Presence.IsConnected(s.alice))
}

// Test: Health reports rooms and connections
func (s *IntegrationSuite) TestHealth() {
	s.app.QueueRoomCodes("ROOM02")
	_, err := s.app.GameController.CreateRoom(s.ctx, s.alice, model.GameModeStandard, true)
	s.Require().NoError(err)

	health := s.app.Health(s.ctx)
	s.Equal("ok", health.Status)
	s.Equal("ok", health.Storage)
	s.Equal(1, health.ActiveRooms)
	s.Equal(2, health.Connected)
}

// Test: Start restores persisted rooms without error on an empty store
func (s *IntegrationSuite) TestStart() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.Require().NoError(s.app.Start(ctx))
}

// Test: A restart keeps ranked games and restarts their forfeit windows
func (s *IntegrationSuite) TestRestartRestoresRankedGame() {
	s.app.QueueRoomCodes("RANK03")
	s.Require().NoError(s.app.Matchmaking.Join(s.ctx, s.alice, model.QueueTypeRanked, model.GameModeStandard))
	s.Require().NoError(s.app.Matchmaking.Join(s.ctx, s.bob, model.QueueTypeRanked, model.GameModeStandard))
	_, err := s.app.GameController.SubmitSecretNumber(s.ctx, "RANK03", s.alice, "12345")
	s.Require().NoError(err)
	_, err = s.app.GameController.SubmitSecretNumber(s.ctx, "RANK03", s.bob, "67890")
	s.Require().NoError(err)

	// Step 1: Shutdown drops both connections without ending the game
	previous := s.app
	s.Require().NoError(previous.Close())
	s.True(s.aliceConn.closed)
	s.True(s.bobConn.closed)
	previous.Presence.Unregister(s.aliceConn)
	previous.Presence.Unregister(s.bobConn)

	stored, err := previous.Storage.GetSession(s.ctx, "RANK03")
	s.Require().NoError(err)
	s.Equal(model.SessionStatePlaying, stored.State)
	s.Equal(0, previous.MockClock.PendingTimers())

	// Step 2: The next process restores the room with both windows open
	s.app = previous.Restart()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.Require().NoError(s.app.Start(ctx))

	s.Equal(1, s.app.Registry.Len())
	s.Equal(2, s.app.MockClock.PendingTimers())

	// Step 3: Alice comes back; Bob does not and forfeits
	s.aliceConn = newRecordingConn(s.alice)
	s.app.Presence.Register(s.aliceConn)
	view, err := s.app.GameController.JoinRoom(s.ctx, "RANK03", s.alice)
	s.Require().NoError(err)
	s.Equal(model.SessionStatePlaying, view.State)
	s.True(view.Connected[s.alice])
	s.Equal(1, s.app.MockClock.PendingTimers())

	s.app.MockClock.Advance(time.Minute)
	s.Contains(s.aliceConn.types(), model.EventGameEnded)
	s.Equal(0, s.app.Registry.Len())
	s.Equal(model.DefaultRating+25, s.stats(s.alice).Rating)
	s.Equal(model.DefaultRating-25, s.stats(s.bob).Rating)
}
