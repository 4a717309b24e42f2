package matchmaking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numduel/internal/dependencies/mocks"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/testutil"
)

type fakePlayers map[model.PlayerID]*model.Player

func (f fakePlayers) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	p, ok := f[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	copied := *p
	return &copied, nil
}

type createdMatch struct {
	a, b      model.PlayerID
	mode      model.GameMode
	matchType model.MatchType
}

type fakeMatcher struct {
	mu      sync.Mutex
	matches []createdMatch
	err     error
}

func (f *fakeMatcher) CreateMatch(ctx context.Context, a, b model.Player, mode model.GameMode, matchType model.MatchType) (model.SessionView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.SessionView{}, f.err
	}
	f.matches = append(f.matches, createdMatch{a: a.ID, b: b.ID, mode: mode, matchType: matchType})
	return model.SessionView{RoomCode: "MATCH1"}, nil
}

func (f *fakeMatcher) created() []createdMatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]createdMatch(nil), f.matches...)
}

func (f *fakeMatcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type MatchmakingSuite struct {
	suite.Suite
	players fakePlayers
	matcher *fakeMatcher
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestMatchmakingSuite(t *testing.T) {
	suite.Run(t, new(MatchmakingSuite))
}

func (s *MatchmakingSuite) SetupTest() {
	s.ctx = context.Background()
	s.players = fakePlayers{}
	for id, rating := range map[model.PlayerID]int{
		"alice": 1000,
		"bob":   1080,
		"carol": 1300,
		"dave":  1010,
		"erin":  1650,
	} {
		s.players[id] = &model.Player{ID: id, DisplayName: string(id), Rating: rating}
	}
	s.matcher = &fakeMatcher{}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.players, s.matcher, s.clock, testutil.NopLogger(), DefaultConfig())
}

func (s *MatchmakingSuite) TestThreshold() {
	cfg := DefaultConfig()
	s.Equal(100, cfg.Threshold(0))
	s.Equal(100, cfg.Threshold(9*time.Second))
	s.Equal(150, cfg.Threshold(10*time.Second))
	s.Equal(200, cfg.Threshold(25*time.Second))
	s.Equal(600, cfg.Threshold(100*time.Second))
	s.Equal(600, cfg.Threshold(time.Hour))
}

func (s *MatchmakingSuite) TestJoinValidation() {
	s.ErrorIs(s.service.Join(s.ctx, "alice", "speed", model.GameModeStandard), model.ErrInvalidQueueType)
	s.ErrorIs(s.service.Join(s.ctx, "alice", model.QueueTypeCasual, "extreme"), model.ErrInvalidGameMode)
	s.ErrorIs(s.service.Join(s.ctx, "nobody", model.QueueTypeCasual, model.GameModeStandard), model.ErrPlayerNotFound)
	s.Equal(0, s.service.Len(model.QueueTypeCasual))
}

func (s *MatchmakingSuite) TestCasualMatchesImmediatelyOnSameMode() {
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeCasual, model.GameModeStandard))
	s.Require().NoError(s.service.Join(s.ctx, "erin", model.QueueTypeCasual, model.GameModeHard))
	s.Empty(s.matcher.created())

	s.Require().NoError(s.service.Join(s.ctx, "carol", model.QueueTypeCasual, ""))
	matches := s.matcher.created()
	s.Require().Len(matches, 1)
	s.Equal(createdMatch{a: "alice", b: "carol", mode: model.GameModeStandard, matchType: model.MatchTypeCasual}, matches[0])

	s.Equal(1, s.service.Len(model.QueueTypeCasual))
	queue, ok := s.service.Queued("erin")
	s.True(ok)
	s.Equal(model.QueueTypeCasual, queue)
}

func (s *MatchmakingSuite) TestRankedMatchesWithinWindow() {
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))
	s.Require().NoError(s.service.Join(s.ctx, "bob", model.QueueTypeRanked, model.GameModeStandard))

	matches := s.matcher.created()
	s.Require().Len(matches, 1)
	s.Equal(model.MatchTypeRanked, matches[0].matchType)
	s.Equal(0, s.service.Len(model.QueueTypeRanked))
}

func (s *MatchmakingSuite) TestRankedPrefersClosestRating() {
	s.Require().NoError(s.service.Join(s.ctx, "bob", model.QueueTypeRanked, model.GameModeStandard))
	s.Require().NoError(s.service.Join(s.ctx, "carol", model.QueueTypeRanked, model.GameModeStandard))
	s.Empty(s.matcher.created())

	s.Require().NoError(s.service.Join(s.ctx, "dave", model.QueueTypeRanked, model.GameModeStandard))
	matches := s.matcher.created()
	s.Require().Len(matches, 1)
	s.Equal(model.PlayerID("bob"), matches[0].a)
	s.Equal(model.PlayerID("dave"), matches[0].b)
}

func (s *MatchmakingSuite) TestRankedWindowWidensWithWait() {
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))
	s.Require().NoError(s.service.Join(s.ctx, "carol", model.QueueTypeRanked, model.GameModeStandard))

	// 300 apart needs a window of at least 300, reached after 40s
	s.clock.Advance(30 * time.Second)
	s.Equal(0, s.service.Sweep(s.ctx))
	s.Equal(2, s.service.Len(model.QueueTypeRanked))

	s.clock.Advance(10 * time.Second)
	s.Equal(1, s.service.Sweep(s.ctx))
	s.Equal(0, s.service.Len(model.QueueTypeRanked))
}

func (s *MatchmakingSuite) TestRankedWindowUsesOlderEntry() {
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))
	s.clock.Advance(40 * time.Second)

	s.Require().NoError(s.service.Join(s.ctx, "carol", model.QueueTypeRanked, model.GameModeStandard))
	matches := s.matcher.created()
	s.Require().Len(matches, 1)
	s.Equal(model.PlayerID("alice"), matches[0].a)
}

func (s *MatchmakingSuite) TestRankedWindowIsCapped() {
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))
	s.Require().NoError(s.service.Join(s.ctx, "erin", model.QueueTypeRanked, model.GameModeStandard))

	s.clock.Advance(time.Hour)
	s.Equal(0, s.service.Sweep(s.ctx))
	s.Equal(2, s.service.Len(model.QueueTypeRanked))
}

func (s *MatchmakingSuite) TestRankedRequiresSameMode() {
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))
	s.Require().NoError(s.service.Join(s.ctx, "dave", model.QueueTypeRanked, model.GameModeHard))
	s.Empty(s.matcher.created())
}

func (s *MatchmakingSuite) TestJoinMovesPlayerBetweenQueues() {
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeCasual, model.GameModeStandard))
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))

	s.Equal(0, s.service.Len(model.QueueTypeCasual))
	s.Equal(1, s.service.Len(model.QueueTypeRanked))

	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))
	s.Equal(1, s.service.Len(model.QueueTypeRanked))
	s.Empty(s.matcher.created())
}

func (s *MatchmakingSuite) TestLeave() {
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))

	s.True(s.service.Leave("alice"))
	s.False(s.service.Leave("alice"))
	_, ok := s.service.Queued("alice")
	s.False(ok)

	s.Require().NoError(s.service.Join(s.ctx, "bob", model.QueueTypeRanked, model.GameModeStandard))
	s.Empty(s.matcher.created())
}

func (s *MatchmakingSuite) TestFailedMatchRequeuesWithOriginalWait() {
	s.matcher.setErr(errors.New("store down"))
	s.Require().NoError(s.service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))
	s.clock.Advance(5 * time.Second)
	s.Require().NoError(s.service.Join(s.ctx, "bob", model.QueueTypeRanked, model.GameModeStandard))

	s.Empty(s.matcher.created())
	s.Equal(2, s.service.Len(model.QueueTypeRanked))

	s.matcher.setErr(nil)
	s.Equal(1, s.service.Sweep(s.ctx))
	s.Equal(0, s.service.Len(model.QueueTypeRanked))
}

func (s *MatchmakingSuite) TestConcurrentJoinsNeverDoubleMatch() {
	ids := []model.PlayerID{"alice", "bob", "carol", "dave", "erin"}
	for i := 0; i < 20; i++ {
		id := model.PlayerID("p" + string(rune('a'+i)))
		s.players[id] = &model.Player{ID: id, DisplayName: string(id), Rating: 1000}
		ids = append(ids, id)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id model.PlayerID) {
			defer wg.Done()
			s.NoError(s.service.Join(s.ctx, id, model.QueueTypeCasual, model.GameModeStandard))
		}(id)
	}
	wg.Wait()

	seen := make(map[model.PlayerID]int)
	for _, m := range s.matcher.created() {
		seen[m.a]++
		seen[m.b]++
	}
	for id, n := range seen {
		s.Equal(1, n, "player %s matched more than once", id)
	}
	s.Len(s.matcher.created(), len(ids)/2)
	s.Equal(len(ids)%2, s.service.Len(model.QueueTypeCasual))
}

func (s *MatchmakingSuite) TestStartAndStop() {
	service := New(s.players, s.matcher, s.clock, testutil.NopLogger(), Config{SweepInterval: 5 * time.Millisecond})
	s.Require().NoError(service.Join(s.ctx, "alice", model.QueueTypeRanked, model.GameModeStandard))
	s.Require().NoError(service.Join(s.ctx, "carol", model.QueueTypeRanked, model.GameModeStandard))

	service.Start(s.ctx)
	service.Start(s.ctx)
	s.clock.Advance(time.Minute)

	s.Eventually(func() bool {
		return service.Len(model.QueueTypeRanked) == 0
	}, time.Second, 5*time.Millisecond)

	service.Stop()
	service.Stop()
}
