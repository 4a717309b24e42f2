package presence

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/testutil"
)

type fakeConn struct {
	id       string
	playerID model.PlayerID

	mu      sync.Mutex
	events  []model.Event
	closed  bool
	sendErr error
}

func newFakeConn(id string, playerID model.PlayerID) *fakeConn {
	return &fakeConn{id: id, playerID: playerID}
}

func (c *fakeConn) ID() string { return c.id }
func (c *fakeConn) PlayerID() model.PlayerID { return c.playerID }

func (c *fakeConn) Send(event model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type RegistrySuite struct {
	suite.Suite
	registry     *Registry
	disconnected []model.PlayerID
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewRegistry(testutil.NopLogger())
	s.disconnected = nil
	s.registry.OnDisconnect(func(id model.PlayerID) {
		s.disconnected = append(s.disconnected, id)
	})
}

func (s *RegistrySuite) TestRegisterAndLookup() {
	conn := newFakeConn("c1", "alice")
	s.registry.Register(conn)

	found, ok := s.registry.Lookup("alice")
	s.True(ok)
	s.Equal("c1", found.ID())
	s.True(s.registry.IsConnected("alice"))
	s.False(s.registry.IsConnected("bob"))
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestRegisterSameHandleIsIdempotent() {
	conn := newFakeConn("c1", "alice")
	s.registry.Register(conn)
	s.registry.Register(conn)

	s.False(conn.isClosed())
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestRegisterClosesSupersededHandle() {
	old := newFakeConn("c1", "alice")
	newer := newFakeConn("c2", "alice")
	s.registry.Register(old)
	s.registry.Register(newer)

	s.True(old.isClosed())
	s.False(newer.isClosed())

	found, _ := s.registry.Lookup("alice")
	s.Equal("c2", found.ID())
}

func (s *RegistrySuite) TestUnregisterStaleHandleIsIgnored() {
	old := newFakeConn("c1", "alice")
	newer := newFakeConn("c2", "alice")
	s.registry.Register(old)
	s.registry.Register(newer)

	s.False(s.registry.Unregister(old))
	s.True(s.registry.IsConnected("alice"))
	s.Empty(s.disconnected)
}

func (s *RegistrySuite) TestUnregisterRunsHooks() {
	conn := newFakeConn("c1", "alice")
	s.registry.Register(conn)

	s.True(s.registry.Unregister(conn))
	s.False(s.registry.IsConnected("alice"))
	s.Equal([]model.PlayerID{"alice"}, s.disconnected)

	// A second unregister does nothing
	s.False(s.registry.Unregister(conn))
	s.Len(s.disconnected, 1)
}

func (s *RegistrySuite) TestSend() {
	conn := newFakeConn("c1", "alice")
	s.registry.Register(conn)

	err := s.registry.Send("alice", model.Event{Type: model.EventGameStarted})
	s.Require().NoError(err)
	s.Len(conn.events, 1)

	err = s.registry.Send("bob", model.Event{Type: model.EventGameStarted})
	s.ErrorIs(err, ErrNotConnected)
}

func (s *RegistrySuite) TestSendSurfacesQueueFailure() {
	conn := newFakeConn("c1", "alice")
	conn.sendErr = errors.New("buffer full")
	s.registry.Register(conn)

	err := s.registry.Send("alice", model.Event{Type: model.EventPlayerTyping})
	s.Error(err)
}

func (s *RegistrySuite) TestCloseAll() {
	a := newFakeConn("c1", "alice")
	b := newFakeConn("c2", "bob")
	s.registry.Register(a)
	s.registry.Register(b)

	s.registry.CloseAll()
	s.True(a.isClosed())
	s.True(b.isClosed())
}

func (s *RegistrySuite) TestUnregisterAfterCloseAllSkipsHooks() {
	alice := newFakeConn("c1", "alice")
	bob := newFakeConn("c2", "bob")
	s.registry.Register(alice)
	s.registry.Register(bob)

	s.registry.CloseAll()
	s.True(s.registry.Unregister(alice))
	s.True(s.registry.Unregister(bob))

	s.Empty(s.disconnected)
	s.Equal(0, s.registry.Count())
}

func (s *RegistrySuite) TestRegisterAfterCloseAllIsRefused() {
	s.registry.CloseAll()

	conn := newFakeConn("c1", "alice")
	s.registry.Register(conn)

	s.True(conn.isClosed())
	s.False(s.registry.IsConnected("alice"))
}

func (s *RegistrySuite) TestConcurrentRegisterUnregister() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := newFakeConn(string(rune('a'+i%26))+"-conn", model.PlayerID(string(rune('a'+i%26))))
			s.registry.Register(conn)
			_ = s.registry.Send(conn.PlayerID(), model.Event{Type: model.EventPlayerTyping})
		}(i)
	}
	wg.Wait()
	s.LessOrEqual(s.registry.Count(), 26)
}
