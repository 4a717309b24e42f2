package game

import (
	"context"
	"log/slog"
	"sort"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/notify"
	"github.com/mcoot/numduel/internal/services/registry"
)

func (c *Controller) newSession(mode model.GameMode, matchType model.MatchType) *model.GameSession {
	now := c.clock.Now()
	return &model.GameSession{
		PlayerNames:   make(map[model.PlayerID]string),
		State:         model.SessionStateWaiting,
		Mode:          mode,
		MatchType:     matchType,
		IsPrivate:     matchType == model.MatchTypePrivate,
		SecretNumbers: make(map[model.PlayerID]string),
		Connected:     make(map[model.PlayerID]bool),
		Departed:      make(map[model.PlayerID]bool),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func resolveMode(mode model.GameMode) (model.GameMode, error) {
	if mode == "" {
		return model.GameModeStandard, nil
	}
	if !mode.Valid() {
		return "", model.ErrInvalidGameMode
	}
	return mode, nil
}

// CreateRoom opens a waiting room hosted by the player
func (c *Controller) CreateRoom(ctx context.Context, host model.PlayerID, mode model.GameMode, isPrivate bool) (model.SessionView, error) {
	mode, err := resolveMode(mode)
	if err != nil {
		return model.SessionView{}, err
	}
	hostPlayer, err := c.players.GetPlayer(ctx, host)
	if err != nil {
		return model.SessionView{}, err
	}

	matchType := model.MatchTypeCasual
	if isPrivate {
		matchType = model.MatchTypePrivate
	}
	session := c.newSession(mode, matchType)
	session.Host = host
	session.Players = []model.PlayerID{host}
	session.PlayerNames[host] = hostPlayer.DisplayName
	session.Connected[host] = true

	room, err := c.newRoom(ctx, session)
	if err != nil {
		return model.SessionView{}, err
	}

	c.logger.Info("room created",
		slog.String("room_code", string(room.Code())),
		slog.String("host", string(host)),
		slog.String("mode", string(mode)),
		slog.Bool("private", isPrivate),
	)
	return room.Snapshot().Public(), nil
}

// CreateMatch opens a full room for two matched players and tells both
func (c *Controller) CreateMatch(ctx context.Context, a, b model.Player, mode model.GameMode, matchType model.MatchType) (model.SessionView, error) {
	mode, err := resolveMode(mode)
	if err != nil {
		return model.SessionView{}, err
	}

	session := c.newSession(mode, matchType)
	session.Host = a.ID
	session.Players = []model.PlayerID{a.ID, b.ID}
	for _, p := range []model.Player{a, b} {
		session.PlayerNames[p.ID] = p.DisplayName
		session.Connected[p.ID] = c.presence.IsConnected(p.ID)
	}

	room, err := c.newRoom(ctx, session)
	if err != nil {
		return model.SessionView{}, err
	}

	room.Lock()
	defer room.Unlock()

	current := room.Session()
	if current.MatchType == model.MatchTypeRanked {
		for _, p := range current.Players {
			if !current.Connected[p] {
				c.armForfeitTimer(room, p)
			}
		}
	}

	view := current.Public()
	for _, p := range current.Players {
		opponent := current.Opponent(p)
		c.emit([]model.PlayerID{p}, model.EventMatchFound, current.RoomCode, p, model.MatchFoundPayload{
			RoomCode:     current.RoomCode,
			OpponentName: current.PlayerNames[opponent],
			Session:      view,
		})
		c.notifier.NotifyUser(p, notify.MatchFound(current.RoomCode, current.PlayerNames[opponent]))
	}

	c.logger.Info("match created",
		slog.String("room_code", string(current.RoomCode)),
		slog.String("player_a", string(a.ID)),
		slog.String("player_b", string(b.ID)),
		slog.String("match_type", string(matchType)),
	)
	return view, nil
}

// JoinRoom adds the player to a waiting room, or resumes a room they already belong to
func (c *Controller) JoinRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (model.SessionView, error) {
	joiner, err := c.players.GetPlayer(ctx, playerID)
	if err != nil {
		return model.SessionView{}, err
	}

	room, err := c.lockRoom(ctx, code)
	if err != nil {
		return model.SessionView{}, err
	}
	defer room.Unlock()

	current := room.Session()
	if current.State.IsTerminal() {
		return model.SessionView{}, model.ErrGameOver
	}
	if current.IsMember(playerID) {
		return c.resume(ctx, room, playerID)
	}
	if current.State != model.SessionStateWaiting {
		return model.SessionView{}, model.ErrRoomNotJoinable
	}
	if current.IsFull() {
		return model.SessionView{}, model.ErrRoomFull
	}

	next := current.Clone()
	next.Players = append(next.Players, playerID)
	next.PlayerNames[playerID] = joiner.DisplayName
	next.Connected[playerID] = true
	if err := c.commit(ctx, room, next); err != nil {
		return model.SessionView{}, err
	}

	c.emit(others(next.Players, playerID), model.EventPlayerJoined, code, playerID, model.PlayerJoinedPayload{
		PlayerID:    playerID,
		DisplayName: joiner.DisplayName,
		RoomCode:    code,
	})
	if next.IsFull() {
		c.emit(next.Players, model.EventRoomReady, code, playerID, model.RoomReadyPayload{
			RoomCode: code,
			Players:  next.Players,
		})
	}

	c.logger.Info("player joined room",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(playerID)),
	)
	return next.Public(), nil
}

// resume reattaches a member to their room. The caller holds the lock.
func (c *Controller) resume(ctx context.Context, room *registry.Room, playerID model.PlayerID) (model.SessionView, error) {
	current := room.Session()
	next := current.Clone()
	next.Connected[playerID] = true
	delete(next.Departed, playerID)

	started := false
	switch {
	case next.State == model.SessionStatePaused && len(next.Departed) == 0:
		next.State = model.SessionStatePlaying
	case next.State == model.SessionStateWaiting && next.SecretsComplete():
		// Both secrets were stored but the transition to playing was lost
		c.startGame(next)
		started = true
	}

	if err := c.commit(ctx, room, next); err != nil {
		return model.SessionView{}, err
	}
	if room.StopTimer(playerID) {
		c.logger.Info("forfeit timer cancelled",
			slog.String("room_code", string(next.RoomCode)),
			slog.String("player_id", string(playerID)),
		)
	}

	if started {
		c.announceStart(next)
	}
	return next.Public(), nil
}

// LeaveRoom detaches the player from a room.
// Ranked rooms treat this as a disconnect. In other rooms an explicit leave
// pauses a game in progress, and the room is abandoned once every member has left.
func (c *Controller) LeaveRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error {
	room, err := c.lockRoom(ctx, code)
	if err != nil {
		return err
	}

	current := room.Session()
	if !current.IsMember(playerID) {
		room.Unlock()
		return model.ErrNotMember
	}
	if current.MatchType == model.MatchTypeRanked {
		err := c.disconnectLocked(ctx, room, playerID)
		room.Unlock()
		return err
	}
	defer room.Unlock()

	next := current.Clone()
	next.Connected[playerID] = false
	next.Departed[playerID] = true

	if next.AllDeparted() {
		next.State = model.SessionStateAbandoned
		next.EndedAt = c.clock.Now()
		return c.abandon(ctx, room, next)
	}

	if next.State == model.SessionStatePlaying {
		next.State = model.SessionStatePaused
	}
	if err := c.commit(ctx, room, next); err != nil {
		return err
	}

	c.emit(others(next.Players, playerID), model.EventPlayerDisconnected, code, playerID, model.PlayerDisconnectedPayload{
		PlayerID: playerID,
		RoomCode: code,
		State:    next.State,
	})
	return nil
}

// DeleteGame removes a room at a member's request. Games in progress can
// only be deleted when ranked.
func (c *Controller) DeleteGame(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error {
	room, err := c.lockRoom(ctx, code)
	if err != nil {
		return err
	}
	defer room.Unlock()

	current := room.Session()
	if !current.IsMember(playerID) {
		return model.ErrNotMember
	}
	if current.State == model.SessionStatePlaying && current.MatchType != model.MatchTypeRanked {
		return model.ErrGameInProgress
	}

	next := current.Clone()
	next.State = model.SessionStateAbandoned
	next.EndedAt = c.clock.Now()
	if err := c.abandon(ctx, room, next); err != nil {
		return err
	}

	c.notifier.NotifyUsers(others(next.Players, playerID), notify.GameDeleted(code))
	c.logger.Info("game deleted",
		slog.String("room_code", string(code)),
		slog.String("player_id", string(playerID)),
	)
	return nil
}

// GetSession returns a member's view of a room
func (c *Controller) GetSession(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (model.SessionView, error) {
	room, err := c.registry.Get(ctx, code)
	if err != nil {
		return model.SessionView{}, err
	}
	session := room.Snapshot()
	if !session.IsMember(playerID) {
		return model.SessionView{}, model.ErrNotMember
	}
	return session.Public(), nil
}

// ListAvailableRooms returns public casual rooms that still have a free seat
func (c *Controller) ListAvailableRooms(ctx context.Context) []model.RoomSummary {
	var sessions []*model.GameSession
	for _, s := range c.registry.List() {
		if s.State == model.SessionStateWaiting && !s.IsPrivate && !s.IsFull() && s.MatchType == model.MatchTypeCasual {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	summaries := make([]model.RoomSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, model.RoomSummary{
			RoomCode:   s.RoomCode,
			HostName:   s.PlayerNames[s.Host],
			Players:    len(s.Players),
			MaxPlayers: model.MaxPlayers,
			Mode:       s.Mode,
		})
	}
	return summaries
}

// ListMyGames returns the player's waiting, playing and paused sessions, most recent first
func (c *Controller) ListMyGames(ctx context.Context, playerID model.PlayerID) ([]model.SessionView, error) {
	sessions, err := c.registry.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	views := make([]model.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.Public())
	}
	return views, nil
}
