package game

import (
	"context"
	"log/slog"

	"github.com/mcoot/numduel/internal/dependencies/clock"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/notify"
	"github.com/mcoot/numduel/internal/services/player"
	"github.com/mcoot/numduel/internal/services/registry"
)

// PlayerDisconnected records that the player is no longer attached to the room.
// Membership is kept so the player can resume later.
func (c *Controller) PlayerDisconnected(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error {
	room, err := c.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.Unlock()
	return c.disconnectLocked(ctx, room, playerID)
}

// HandleDisconnect applies PlayerDisconnected to every room the player is attached to.
// It is run when the player's connection goes away.
func (c *Controller) HandleDisconnect(ctx context.Context, playerID model.PlayerID) {
	for _, s := range c.registry.List() {
		if !s.IsMember(playerID) || !s.Connected[playerID] {
			continue
		}
		if err := c.PlayerDisconnected(ctx, s.RoomCode, playerID); err != nil {
			c.logger.Warn("failed to record disconnect",
				slog.String("room_code", string(s.RoomCode)),
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// disconnectLocked detaches the player from the room. The caller holds the lock.
// In ranked rooms the last player leaving abandons the room; otherwise the
// absent player gets a forfeit timer.
func (c *Controller) disconnectLocked(ctx context.Context, room *registry.Room, playerID model.PlayerID) error {
	current := room.Session()
	if !current.IsMember(playerID) {
		return model.ErrNotMember
	}
	if current.State.IsTerminal() || !current.Connected[playerID] {
		return nil
	}

	next := current.Clone()
	next.Connected[playerID] = false
	ranked := next.MatchType == model.MatchTypeRanked

	if ranked && next.ConnectedCount() == 0 {
		ended := next.Clone()
		ended.State = model.SessionStateAbandoned
		ended.EndedAt = c.clock.Now()
		if err := c.abandon(ctx, room, ended); err == nil {
			c.logger.Info("ranked game abandoned by both players",
				slog.String("room_code", string(next.RoomCode)),
			)
			return nil
		}
		// The store still holds the game, so track the absence like any
		// other disconnect and let the forfeit window retry the abandon
	}

	// Presence is applied even when the store is unavailable so the forfeit
	// window still starts
	if err := c.commit(ctx, room, next); err != nil {
		room.Replace(next)
	}
	if ranked {
		c.armForfeitTimer(room, playerID)
	}

	var remaining []model.PlayerID
	for _, p := range others(next.Players, playerID) {
		if next.Connected[p] {
			remaining = append(remaining, p)
		}
	}
	c.emit(remaining, model.EventPlayerDisconnected, next.RoomCode, playerID, model.PlayerDisconnectedPayload{
		PlayerID: playerID,
		RoomCode: next.RoomCode,
		State:    next.State,
	})
	return nil
}

// armForfeitTimer starts the forfeit window for an absent ranked player.
// The caller holds the room lock.
func (c *Controller) armForfeitTimer(room *registry.Room, playerID model.PlayerID) {
	var timer clock.Timer
	timer = c.clock.AfterFunc(c.cfg.ForfeitTimeout, func() {
		room.Lock()
		defer room.Unlock()
		c.forfeitLocked(room, playerID, timer)
	})
	room.SetTimer(playerID, timer)

	c.logger.Info("forfeit timer started",
		slog.String("room_code", string(room.Code())),
		slog.String("player_id", string(playerID)),
		slog.Duration("timeout", c.cfg.ForfeitTimeout),
	)
}

// forfeitLocked runs when a forfeit window closes. It does nothing if the
// timer was superseded or cancelled, or if the player came back.
func (c *Controller) forfeitLocked(room *registry.Room, playerID model.PlayerID, timer clock.Timer) {
	if room.Removed() || !room.IsCurrentTimer(playerID, timer) {
		return
	}
	room.StopTimer(playerID)

	current := room.Session()
	if current.State.IsTerminal() || current.Connected[playerID] {
		return
	}

	ctx := context.Background()
	opponent := current.Opponent(playerID)
	next := current.Clone()
	next.EndedAt = c.clock.Now()

	if opponent == "" || !current.Connected[opponent] {
		next.State = model.SessionStateAbandoned
		if err := c.abandon(ctx, room, next); err != nil {
			c.armForfeitTimer(room, playerID)
			return
		}
		c.logger.Info("ranked game abandoned after forfeit window",
			slog.String("room_code", string(next.RoomCode)),
		)
		return
	}

	next.State = model.SessionStateFinished
	next.Winner = opponent
	if err := c.commit(ctx, room, next); err != nil {
		room.Replace(next)
	}
	c.logger.Info("player forfeited",
		slog.String("room_code", string(next.RoomCode)),
		slog.String("player_id", string(playerID)),
		slog.String("winner", string(opponent)),
	)
	c.finish(ctx, room, model.EndReasonForfeit)
}

// finish processes a session that has just been won. The caller holds the lock
// and has already committed the finished state, so this runs exactly once per room.
func (c *Controller) finish(ctx context.Context, room *registry.Room, reason string) {
	ctx = context.WithoutCancel(ctx)
	s := room.Session()
	loser := s.Opponent(s.Winner)

	c.emit(s.Players, model.EventGameEnded, s.RoomCode, s.Winner, model.GameEndedPayload{
		RoomCode: s.RoomCode,
		Winner:   s.Winner,
		Reason:   reason,
		Session:  s.Public(),
	})
	c.notifier.NotifyUser(s.Winner, notify.GameWon(s.RoomCode, reason))
	if loser != "" {
		c.notifier.NotifyUser(loser, notify.GameLost(s.RoomCode, reason))
	}

	if err := c.players.ApplyResult(ctx, player.MatchResult{
		RoomCode:  s.RoomCode,
		MatchType: s.MatchType,
		Winner:    s.Winner,
		Loser:     loser,
	}); err != nil {
		c.logger.Error("failed to record match result",
			slog.String("room_code", string(s.RoomCode)),
			slog.String("error", err.Error()),
		)
	}

	if err := c.registry.Delete(ctx, room); err != nil {
		c.logger.Error("failed to delete finished session",
			slog.String("room_code", string(s.RoomCode)),
			slog.String("error", err.Error()),
		)
	}

	c.logger.Info("game finished",
		slog.String("room_code", string(s.RoomCode)),
		slog.String("winner", string(s.Winner)),
		slog.String("reason", reason),
		slog.Int("guesses", len(s.GuessHistory)),
	)
}

// abandon ends a session with no winner and removes it. No stats change.
// The terminal state is saved before the delete so a failed delete leaves a
// row the registry will never load again. It fails only when neither write
// reached the store, in which case the room is left as it was.
// The caller holds the lock.
func (c *Controller) abandon(ctx context.Context, room *registry.Room, next *model.GameSession) error {
	ctx = context.WithoutCancel(ctx)
	next.UpdatedAt = c.clock.Now()

	saveErr := c.registry.Save(ctx, next)
	if saveErr == nil {
		room.Replace(next)
	}
	if err := c.registry.Delete(ctx, room); err != nil {
		if saveErr != nil {
			c.logger.Error("failed to abandon session",
				slog.String("room_code", string(next.RoomCode)),
				slog.String("error", err.Error()),
			)
			return err
		}
		c.logger.Warn("abandoned session left in store",
			slog.String("room_code", string(next.RoomCode)),
			slog.String("error", err.Error()),
		)
	}

	c.emit(next.Players, model.EventGameDeleted, next.RoomCode, "", model.GameDeletedPayload{
		RoomCode: next.RoomCode,
	})
	c.logger.Info("game abandoned", slog.String("room_code", string(next.RoomCode)))
	return nil
}

// RestoreTimers loads stored sessions into memory after a restart. Nobody is
// attached to a rehydrated room, so every absent ranked player gets a fresh
// forfeit window instead of assuming an old one elapsed.
func (c *Controller) RestoreTimers(ctx context.Context) (int, error) {
	rooms, err := c.registry.Rehydrate(ctx)
	if err != nil {
		return 0, err
	}

	timers := 0
	for _, room := range rooms {
		room.Lock()
		if room.Removed() {
			room.Unlock()
			continue
		}
		next := room.Session().Clone()
		for _, p := range next.Players {
			next.Connected[p] = false
		}
		room.Replace(next)

		if next.MatchType == model.MatchTypeRanked && next.State.IsActive() {
			for _, p := range next.Players {
				c.armForfeitTimer(room, p)
				timers++
			}
		}
		room.Unlock()
	}

	c.logger.Info("session timers restored",
		slog.Int("rooms", len(rooms)),
		slog.Int("forfeit_timers", timers),
	)
	return len(rooms), nil
}
