package player

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/storage"
)

// Rewards configures the stat changes applied when a match is decided
type Rewards struct {
	RatingChange         int // Ranked only; added to the winner, taken from the loser
	WinnerXP             int
	LoserXP              int
	WinnerCoins          int
	RankedCoinMultiplier int
}

// DefaultRewards returns the standard reward table
func DefaultRewards() Rewards {
	return Rewards{
		RatingChange:         25,
		WinnerXP:             50,
		LoserXP:              10,
		WinnerCoins:          20,
		RankedCoinMultiplier: 2,
	}
}

// MatchResult describes a decided match
type MatchResult struct {
	RoomCode  model.RoomCode
	MatchType model.MatchType
	Winner    model.PlayerID
	Loser     model.PlayerID
}

// Service is the user collaborator: profile lookups and stat updates
type Service struct {
	storage storage.Storage
	rewards Rewards
	logger  *slog.Logger
}

// New creates a new player service
func New(storage storage.Storage, rewards Rewards, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		rewards: rewards,
		logger:  logger.With(slog.String("component", "player")),
	}
}

// GetPlayer returns the stored player, including current rating
func (s *Service) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, id)
}

// Deltas returns the stat changes for the winner and loser of a match
func (s *Service) Deltas(matchType model.MatchType) (winner, loser model.StatsDelta) {
	winner = model.StatsDelta{XP: s.rewards.WinnerXP, Coins: s.rewards.WinnerCoins, Wins: 1, GamesPlayed: 1}
	loser = model.StatsDelta{XP: s.rewards.LoserXP, Losses: 1, GamesPlayed: 1}
	if matchType == model.MatchTypeRanked {
		winner.Rating = s.rewards.RatingChange
		loser.Rating = -s.rewards.RatingChange
		if s.rewards.RankedCoinMultiplier > 0 {
			winner.Coins *= s.rewards.RankedCoinMultiplier
		}
	}
	return winner, loser
}

// ApplyResult records a decided match against both players' stats.
// Both updates are attempted and any failures are joined.
func (s *Service) ApplyResult(ctx context.Context, result MatchResult) error {
	winnerDelta, loserDelta := s.Deltas(result.MatchType)

	var errs []error
	if err := s.storage.IncrementPlayerStats(ctx, result.Winner, winnerDelta); err != nil {
		errs = append(errs, err)
	}
	if result.Loser != "" {
		if err := s.storage.IncrementPlayerStats(ctx, result.Loser, loserDelta); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.logger.Error("failed to apply match result",
			slog.String("room_code", string(result.RoomCode)),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.Info("match result applied",
		slog.String("room_code", string(result.RoomCode)),
		slog.String("winner", string(result.Winner)),
		slog.String("loser", string(result.Loser)),
		slog.String("match_type", string(result.MatchType)),
	)
	return nil
}
