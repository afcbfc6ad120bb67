package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "pitlog/pkg/domain"
	"pitlog/pkg/platform/sentinel"
)

type ManagerSuite struct {
	suite.Suite

	now time.Time
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ManagerSuite) newManager(opts ...ManagerOption) *Manager {
	opts = append([]ManagerOption{
		WithManagerBaseInterval(time.Hour),
		WithManagerClock(func() time.Time { return s.now }),
	}, opts...)
	m := NewManager(opts...)
	s.T().Cleanup(m.Close)
	return m
}

func (s *ManagerSuite) TestCreateGetDelete() {
	m := s.newManager()

	session, err := m.Create(nil)
	s.Require().NoError(err)
	s.Equal(1, m.Len())

	got, err := m.Get(session.ID())
	s.Require().NoError(err)
	s.Same(session, got)

	s.Require().NoError(m.Delete(session.ID()))
	s.Equal(0, m.Len())

	_, err = m.Get(session.ID())
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(m.Delete(session.ID()), sentinel.ErrNotFound)
}

func (s *ManagerSuite) TestGetUnknownID() {
	m := s.newManager()
	_, err := m.Get(id.NewReplayID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ManagerSuite) TestSweepExpiresIdleSessions() {
	m := s.newManager(WithIdleTTL(10 * time.Minute))

	stale, err := m.Create(nil)
	s.Require().NoError(err)

	s.now = s.now.Add(9 * time.Minute)
	fresh, err := m.Create(nil)
	s.Require().NoError(err)

	s.now = s.now.Add(2 * time.Minute)
	m.sweep()

	_, err = m.Get(stale.ID())
	s.ErrorIs(err, sentinel.ErrNotFound, "untouched session past TTL is swept")

	_, err = m.Get(fresh.ID())
	s.NoError(err)
}

func (s *ManagerSuite) TestGetRefreshesIdleDeadline() {
	m := s.newManager(WithIdleTTL(10 * time.Minute))

	session, err := m.Create(nil)
	s.Require().NoError(err)

	s.now = s.now.Add(9 * time.Minute)
	_, err = m.Get(session.ID())
	s.Require().NoError(err)

	s.now = s.now.Add(9 * time.Minute)
	m.sweep()

	_, err = m.Get(session.ID())
	s.NoError(err, "touched session survives the sweep")
}

func (s *ManagerSuite) TestCloseRejectsCreate() {
	m := s.newManager()

	_, err := m.Create(nil)
	s.Require().NoError(err)

	m.Close()
	s.Equal(0, m.Len())

	_, err = m.Create(nil)
	s.ErrorIs(err, sentinel.ErrClosed)
}
