package game

import (
	"context"
	"log/slog"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/feedback"
	"github.com/mcoot/numduel/internal/services/notify"
)

// startGame moves a session with both secrets into play. The first player guesses first.
func (c *Controller) startGame(s *model.GameSession) {
	s.State = model.SessionStatePlaying
	s.CurrentTurn = s.Players[0]
	s.StartedAt = c.clock.Now()
}

func (c *Controller) announceStart(s *model.GameSession) {
	c.emit(s.Players, model.EventGameStarted, s.RoomCode, s.CurrentTurn, model.GameStartedPayload{
		RoomCode:    s.RoomCode,
		CurrentTurn: s.CurrentTurn,
		Mode:        s.Mode,
	})
	c.notifier.NotifyUser(s.CurrentTurn, notify.YourTurn(s.RoomCode))

	c.logger.Info("game started",
		slog.String("room_code", string(s.RoomCode)),
		slog.String("first_turn", string(s.CurrentTurn)),
	)
}

// SubmitSecretNumber records the player's secret. The game starts when the
// second distinct secret is recorded.
func (c *Controller) SubmitSecretNumber(ctx context.Context, code model.RoomCode, playerID model.PlayerID, number string) (model.SessionView, error) {
	if err := feedback.ValidateNumber(number); err != nil {
		return model.SessionView{}, err
	}

	room, err := c.lockRoom(ctx, code)
	if err != nil {
		return model.SessionView{}, err
	}
	defer room.Unlock()

	current := room.Session()
	if !current.IsMember(playerID) {
		return model.SessionView{}, model.ErrNotMember
	}
	if current.State.IsTerminal() {
		return model.SessionView{}, model.ErrGameOver
	}
	if _, ok := current.SecretNumbers[playerID]; ok {
		return model.SessionView{}, model.ErrSecretAlreadySet
	}
	if current.State != model.SessionStateWaiting {
		return model.SessionView{}, model.ErrGameAlreadyStarted
	}

	next := current.Clone()
	next.SecretNumbers[playerID] = number
	started := false
	if next.SecretsComplete() {
		c.startGame(next)
		started = true
	}

	if err := c.commit(ctx, room, next); err != nil {
		return model.SessionView{}, err
	}

	c.logger.Info("secret number submitted",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(playerID)),
	)
	if started {
		c.announceStart(next)
	}
	return next.Public(), nil
}

// SubmitGuess evaluates a guess against the opponent's secret. A full match
// finishes the game; otherwise the turn passes to the opponent.
func (c *Controller) SubmitGuess(ctx context.Context, code model.RoomCode, playerID model.PlayerID, guess string) (*GuessOutcome, error) {
	room, err := c.lockRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	defer room.Unlock()

	current := room.Session()
	if !current.IsMember(playerID) {
		return nil, model.ErrNotMember
	}
	if current.State.IsTerminal() {
		return nil, model.ErrGameOver
	}
	if current.State != model.SessionStatePlaying {
		return nil, model.ErrGameNotPlaying
	}
	if current.CurrentTurn != playerID {
		return nil, model.ErrNotYourTurn
	}
	if err := feedback.ValidateNumber(guess); err != nil {
		return nil, err
	}

	opponent := current.Opponent(playerID)
	secret, ok := current.SecretNumbers[opponent]
	if !ok {
		return nil, model.ErrOpponentSecretMissing
	}

	result := feedback.Evaluate(guess, secret)
	now := c.clock.Now()
	entry := model.GuessEntry{
		PlayerID:  playerID,
		Guess:     guess,
		Feedback:  result.Disclose(current.Mode),
		Timestamp: now,
	}

	next := current.Clone()
	next.GuessHistory = append(next.GuessHistory, entry)
	if result.IsWin() {
		next.State = model.SessionStateFinished
		next.Winner = playerID
		next.EndedAt = now
	} else {
		next.CurrentTurn = opponent
	}

	if err := c.commit(ctx, room, next); err != nil {
		return nil, err
	}

	c.emit(next.Players, model.EventGuessSubmitted, code, playerID, model.GuessSubmittedPayload{
		RoomCode:    code,
		Entry:       entry,
		CurrentTurn: next.CurrentTurn,
		State:       next.State,
	})

	if result.IsWin() {
		c.finish(ctx, room, model.EndReasonSolved)
	} else {
		c.notifier.NotifyUser(opponent, notify.YourTurn(code))
	}

	return &GuessOutcome{Feedback: entry.Feedback, Session: next.Public()}, nil
}

// Typing relays a typing indicator to the opponent. Nothing is persisted.
func (c *Controller) Typing(ctx context.Context, code model.RoomCode, playerID model.PlayerID, isTyping bool, partial string) error {
	room, err := c.registry.Get(ctx, code)
	if err != nil {
		return err
	}
	session := room.Snapshot()
	if !session.IsMember(playerID) {
		return model.ErrNotMember
	}
	if session.State != model.SessionStatePlaying {
		return nil
	}
	if len(partial) > model.NumberLength {
		partial = partial[:model.NumberLength]
	}

	c.emit(others(session.Players, playerID), model.EventPlayerTyping, code, playerID, model.PlayerTypingPayload{
		PlayerID:     playerID,
		IsTyping:     isTyping,
		PartialInput: partial,
	})
	return nil
}
