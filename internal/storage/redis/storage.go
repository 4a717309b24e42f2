package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/storage"
)

// Stats hash fields
const (
	fieldRating      = "rating"
	fieldXP          = "xp"
	fieldCoins       = "coins"
	fieldWins        = "wins"
	fieldLosses      = "losses"
	fieldGamesPlayed = "games_played"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection is alive
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations
//
// The profile is stored as JSON and the counters live in a separate hash so
// that IncrementPlayerStats can use HINCRBY without reading the profile.

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Apply TTL only for guest players
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}

	statsKey := playerStatsKey(player.ID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, playerKey(player.ID), data, ttl)
	// Existing counters win over the profile snapshot
	pipe.HSetNX(ctx, statsKey, fieldRating, player.Rating)
	pipe.HSetNX(ctx, statsKey, fieldXP, player.XP)
	pipe.HSetNX(ctx, statsKey, fieldCoins, player.Coins)
	pipe.HSetNX(ctx, statsKey, fieldWins, player.Wins)
	pipe.HSetNX(ctx, statsKey, fieldLosses, player.Losses)
	pipe.HSetNX(ctx, statsKey, fieldGamesPlayed, player.GamesPlayed)
	if ttl > 0 {
		pipe.Expire(ctx, statsKey, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	pipe := s.client.Pipeline()
	profileCmd := pipe.Get(ctx, playerKey(id))
	statsCmd := pipe.HGetAll(ctx, playerStatsKey(id))
	_, _ = pipe.Exec(ctx)

	data, err := profileCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}

	stats, err := statsCmd.Result()
	if err != nil {
		return nil, err
	}
	overlayStats(&player, stats)
	return &player, nil
}

func overlayStats(player *model.Player, stats map[string]string) {
	fields := map[string]*int{
		fieldRating:      &player.Rating,
		fieldXP:          &player.XP,
		fieldCoins:       &player.Coins,
		fieldWins:        &player.Wins,
		fieldLosses:      &player.Losses,
		fieldGamesPlayed: &player.GamesPlayed,
	}
	for name, dst := range fields {
		raw, ok := stats[name]
		if !ok {
			continue
		}
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		}
	}
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerKey(id), playerStatsKey(id)).Err()
}

func (s *Storage) IncrementPlayerStats(ctx context.Context, id model.PlayerID, delta model.StatsDelta) error {
	exists, err := s.client.Exists(ctx, playerKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrPlayerNotFound
	}
	if delta.IsZero() {
		return nil
	}

	key := playerStatsKey(id)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr := func(field string, by int) {
			if by != 0 {
				pipe.HIncrBy(ctx, key, field, int64(by))
			}
		}
		incr(fieldRating, delta.Rating)
		incr(fieldXP, delta.XP)
		incr(fieldCoins, delta.Coins)
		incr(fieldWins, delta.Wins)
		incr(fieldLosses, delta.Losses)
		incr(fieldGamesPlayed, delta.GamesPlayed)
		return nil
	})
	return err
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0) // No TTL
	pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	data, err := s.client.Get(ctx, registeredPlayerKey(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rp model.RegisteredPlayer
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	// Look up player ID from username index
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetRegisteredPlayer(ctx, model.PlayerID(playerIDStr))
}

// Game session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	key := sessionKey(session.RoomCode)

	// Active rooms stay resumable until they end; only terminal rows expire
	ttl := time.Duration(0)
	if !session.State.IsActive() {
		ttl = s.cfg.RoomTTL
	}

	// Session body and index membership change together
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	if session.State.IsActive() {
		pipe.SAdd(ctx, activeSessionsIndexKey(), key)
		for _, p := range session.Players {
			pipe.SAdd(ctx, playerSessionsIndexKey(p), key)
		}
	} else {
		pipe.SRem(ctx, activeSessionsIndexKey(), key)
		for _, p := range session.Players {
			pipe.SRem(ctx, playerSessionsIndexKey(p), key)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, code model.RoomCode) (*model.GameSession, error) {
	data, err := s.client.Get(ctx, sessionKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, session *model.GameSession) error {
	key := sessionKey(session.RoomCode)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, activeSessionsIndexKey(), key)
	for _, p := range session.Players {
		pipe.SRem(ctx, playerSessionsIndexKey(p), key)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) SessionExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, sessionKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *Storage) FindActiveSessionsByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.GameSession, error) {
	sessions, err := s.loadIndexedSessions(ctx, playerSessionsIndexKey(playerID))
	if err != nil {
		return nil, err
	}

	result := make([]*model.GameSession, 0, len(sessions))
	for _, session := range sessions {
		if session.IsMember(playerID) {
			result = append(result, session)
		}
	}
	return result, nil
}

func (s *Storage) ListActiveSessions(ctx context.Context) ([]*model.GameSession, error) {
	return s.loadIndexedSessions(ctx, activeSessionsIndexKey())
}

// loadIndexedSessions fetches every active session whose key is in the given SET.
// Keys whose rows are gone are pruned from the index.
func (s *Storage) loadIndexedSessions(ctx context.Context, indexKey string) ([]*model.GameSession, error) {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []*model.GameSession{}, nil
	}

	// Fetch all sessions in one round trip using MGET
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.GameSession, 0, len(values))
	var stale []any
	for i, val := range values {
		if val == nil {
			stale = append(stale, keys[i])
			continue
		}
		var session model.GameSession
		if err := json.Unmarshal([]byte(val.(string)), &session); err != nil {
			continue // Skip invalid data
		}
		if !session.State.IsActive() {
			continue
		}
		sessions = append(sessions, &session)
	}

	if len(stale) > 0 {
		_ = s.client.SRem(ctx, indexKey, stale...).Err()
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}
