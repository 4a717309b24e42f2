package matchmaking

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/numduel/internal/dependencies/clock"
	"github.com/mcoot/numduel/internal/model"
)

// Matcher creates the session for a matched pair
type Matcher interface {
	CreateMatch(ctx context.Context, a, b model.Player, mode model.GameMode, matchType model.MatchType) (model.SessionView, error)
}

// PlayerDirectory resolves the display name and rating of a queued player
type PlayerDirectory interface {
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
}

// Config holds matchmaking settings
type Config struct {
	// SweepInterval is how often the ranked queue is re-evaluated
	SweepInterval time.Duration
	// BaseThreshold is the rating window for a fresh entry
	BaseThreshold int
	// ThresholdStep widens the window once per StepInterval of waiting
	ThresholdStep int
	StepInterval  time.Duration
	// MaxThreshold caps the window
	MaxThreshold int
}

// DefaultConfig returns the default matchmaking configuration
func DefaultConfig() Config {
	return Config{
		SweepInterval: 3 * time.Second,
		BaseThreshold: 100,
		ThresholdStep: 50,
		StepInterval:  10 * time.Second,
		MaxThreshold:  600,
	}
}

// Threshold returns the rating window for an entry that has waited for wait
func (c Config) Threshold(wait time.Duration) int {
	if wait < 0 {
		wait = 0
	}
	steps := int(wait / c.StepInterval)
	return min(c.BaseThreshold+c.ThresholdStep*steps, c.MaxThreshold)
}

type queue struct {
	mu      sync.Mutex
	kind    model.QueueType
	entries []model.QueueEntry
}

func (q *queue) remove(id model.PlayerID) bool {
	for i, e := range q.entries {
		if e.Player.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *queue) contains(id model.PlayerID) bool {
	for _, e := range q.entries {
		if e.Player.ID == id {
			return true
		}
	}
	return false
}

type pair struct {
	a, b model.QueueEntry
}

// Service pairs queued players and hands each pair to the Matcher.
// Each queue has its own lock; operations touching both always take
// casual before ranked.
type Service struct {
	casual  *queue
	ranked  *queue
	players PlayerDirectory
	matcher Matcher
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// New creates a new matchmaking service
func New(players PlayerDirectory, matcher Matcher, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = defaults.StepInterval
	}
	if cfg.BaseThreshold <= 0 {
		cfg.BaseThreshold = defaults.BaseThreshold
	}
	if cfg.ThresholdStep <= 0 {
		cfg.ThresholdStep = defaults.ThresholdStep
	}
	if cfg.MaxThreshold <= 0 {
		cfg.MaxThreshold = defaults.MaxThreshold
	}
	return &Service{
		casual:  &queue{kind: model.QueueTypeCasual},
		ranked:  &queue{kind: model.QueueTypeRanked},
		players: players,
		matcher: matcher,
		clock:   clock,
		logger:  logger.With(slog.String("component", "matchmaking")),
		cfg:     cfg,
	}
}

func (s *Service) queue(kind model.QueueType) *queue {
	if kind == model.QueueTypeRanked {
		return s.ranked
	}
	return s.casual
}

func (s *Service) lockBoth() {
	s.casual.mu.Lock()
	s.ranked.mu.Lock()
}

func (s *Service) unlockBoth() {
	s.ranked.mu.Unlock()
	s.casual.mu.Unlock()
}

// Join puts the player in the given queue, replacing any entry they already
// have, and tries to match them straight away.
func (s *Service) Join(ctx context.Context, playerID model.PlayerID, kind model.QueueType, mode model.GameMode) error {
	if !kind.Valid() {
		return model.ErrInvalidQueueType
	}
	if mode == "" {
		mode = model.GameModeStandard
	}
	if !mode.Valid() {
		return model.ErrInvalidGameMode
	}
	p, err := s.players.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}

	entry := model.QueueEntry{
		Player:     *p,
		Rating:     p.Rating,
		Mode:       mode,
		EnqueuedAt: s.clock.Now(),
	}

	s.lockBoth()
	s.casual.remove(playerID)
	s.ranked.remove(playerID)
	q := s.queue(kind)
	q.entries = append(q.entries, entry)
	match, ok := s.matchNewest(q)
	s.unlockBoth()

	s.logger.Info("player joined queue",
		slog.String("player_id", string(playerID)),
		slog.String("queue", string(kind)),
		slog.String("mode", string(mode)),
		slog.Int("rating", entry.Rating),
	)

	if ok {
		s.createMatch(ctx, kind, match)
	}
	return nil
}

// Leave removes the player from whichever queue they are in
func (s *Service) Leave(playerID model.PlayerID) bool {
	s.lockBoth()
	removed := s.casual.remove(playerID)
	removed = s.ranked.remove(playerID) || removed
	s.unlockBoth()

	if removed {
		s.logger.Info("player left queue", slog.String("player_id", string(playerID)))
	}
	return removed
}

// Queued reports which queue the player is in
func (s *Service) Queued(playerID model.PlayerID) (model.QueueType, bool) {
	s.lockBoth()
	defer s.unlockBoth()
	switch {
	case s.casual.contains(playerID):
		return model.QueueTypeCasual, true
	case s.ranked.contains(playerID):
		return model.QueueTypeRanked, true
	}
	return "", false
}

// Len returns the number of entries in a queue
func (s *Service) Len(kind model.QueueType) int {
	q := s.queue(kind)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// matchNewest pairs the last entry of q with a waiting entry, if one is
// eligible. The caller holds q's lock.
func (s *Service) matchNewest(q *queue) (pair, bool) {
	newest := len(q.entries) - 1
	entry := q.entries[newest]
	now := s.clock.Now()

	best := -1
	bestDiff := 0
	for i := 0; i < newest; i++ {
		other := q.entries[i]
		if other.Mode != entry.Mode {
			continue
		}
		if q.kind == model.QueueTypeCasual {
			best = i
			break
		}
		diff := abs(entry.Rating - other.Rating)
		if diff > s.cfg.Threshold(now.Sub(other.EnqueuedAt)) {
			continue
		}
		if best == -1 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best == -1 {
		return pair{}, false
	}

	match := pair{a: q.entries[best], b: entry}
	q.entries = q.entries[:newest]
	q.entries = append(q.entries[:best], q.entries[best+1:]...)
	return match, true
}

// pairAll removes every eligible pair from q, oldest entries first. The caller holds q's lock.
func (s *Service) pairAll(q *queue) []pair {
	sort.SliceStable(q.entries, func(i, j int) bool {
		return q.entries[i].EnqueuedAt.Before(q.entries[j].EnqueuedAt)
	})
	now := s.clock.Now()
	taken := make([]bool, len(q.entries))
	var pairs []pair

	for i, older := range q.entries {
		if taken[i] {
			continue
		}
		threshold := s.cfg.Threshold(now.Sub(older.EnqueuedAt))
		best := -1
		bestDiff := 0
		for j := i + 1; j < len(q.entries); j++ {
			other := q.entries[j]
			if taken[j] || other.Mode != older.Mode {
				continue
			}
			if q.kind == model.QueueTypeCasual {
				best = j
				break
			}
			diff := abs(older.Rating - other.Rating)
			if diff <= threshold && (best == -1 || diff < bestDiff) {
				best, bestDiff = j, diff
			}
		}
		if best == -1 {
			continue
		}
		taken[i], taken[best] = true, true
		pairs = append(pairs, pair{a: older, b: q.entries[best]})
	}

	remaining := q.entries[:0]
	for i, e := range q.entries {
		if !taken[i] {
			remaining = append(remaining, e)
		}
	}
	q.entries = remaining
	return pairs
}

// Sweep re-evaluates both queues with the current rating windows and starts
// a session for every pair found. It returns the number of matches made.
func (s *Service) Sweep(ctx context.Context) int {
	matched := 0
	for _, q := range []*queue{s.casual, s.ranked} {
		q.mu.Lock()
		pairs := s.pairAll(q)
		q.mu.Unlock()

		for _, p := range pairs {
			if s.createMatch(ctx, q.kind, p) {
				matched++
			}
		}
	}
	return matched
}

// createMatch hands a pair to the Matcher. Entries go back in their queue
// with their original wait if that fails.
func (s *Service) createMatch(ctx context.Context, kind model.QueueType, p pair) bool {
	view, err := s.matcher.CreateMatch(ctx, p.a.Player, p.b.Player, p.a.Mode, kind.MatchType())
	if err != nil {
		s.logger.Error("failed to create match, re-queueing",
			slog.String("queue", string(kind)),
			slog.String("player_a", string(p.a.Player.ID)),
			slog.String("player_b", string(p.b.Player.ID)),
			slog.String("error", err.Error()),
		)
		s.requeue(kind, p.a, p.b)
		return false
	}

	s.logger.Info("players matched",
		slog.String("queue", string(kind)),
		slog.String("room_code", string(view.RoomCode)),
		slog.String("player_a", string(p.a.Player.ID)),
		slog.String("player_b", string(p.b.Player.ID)),
		slog.Int("rating_diff", abs(p.a.Rating-p.b.Rating)),
	)
	return true
}

// requeue restores entries unless the player has queued again meanwhile
func (s *Service) requeue(kind model.QueueType, entries ...model.QueueEntry) {
	s.lockBoth()
	defer s.unlockBoth()
	q := s.queue(kind)
	for _, e := range entries {
		if s.casual.contains(e.Player.ID) || s.ranked.contains(e.Player.ID) {
			continue
		}
		q.entries = append(q.entries, e)
	}
}

// Start runs the periodic sweep until Stop is called or ctx is done
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run(ctx, s.stop, s.stopped)

	s.logger.Info("matchmaking sweep started", slog.Duration("interval", s.cfg.SweepInterval))
}

func (s *Service) run(ctx context.Context, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				s.logger.Debug("sweep matched players", slog.Int("matches", n))
			}
		}
	}
}

// Stop halts the periodic sweep and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped
	s.logger.Info("matchmaking sweep stopped")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
