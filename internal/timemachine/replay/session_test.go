package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

type SessionSuite struct {
	suite.Suite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) events(n int) []event.Event {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	events := make([]event.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, event.Event{
			ID:        id.NewEventID(),
			Type:      event.TypeCreation,
			Category:  event.CategoryTask,
			Title:     "event",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	return events
}

func (s *SessionSuite) newSession(n int, opts ...Option) *Session {
	opts = append([]Option{WithBaseInterval(20 * time.Millisecond)}, opts...)
	session := NewSession(id.NewReplayID(), s.events(n), opts...)
	s.T().Cleanup(session.Close)
	return session
}

func (s *SessionSuite) TestInitialState() {
	session := s.newSession(5)

	status := session.Status()
	s.Equal(StateStopped, status.State)
	s.Equal(0, status.Cursor)
	s.Equal(5, status.Total)
	s.Equal(float64(1), status.Speed)
	s.InDelta(20.0, status.Progress, 0.01)
}

func (s *SessionSuite) TestEmptySequenceIsInert() {
	session := s.newSession(0)

	session.Play()
	session.SkipToEnd()
	session.SetSpeed(4)
	session.Reset()

	status := session.Status()
	s.Equal(StateStopped, status.State)
	s.Equal(0, status.Cursor)
	s.Zero(status.Progress, "empty sequence must not divide by zero")
	s.Nil(status.Current)
	s.Empty(session.History())
}

func (s *SessionSuite) TestEventsAreSortedAtCreation() {
	events := s.events(3)
	shuffled := []event.Event{events[2], events[0], events[1]}
	session := NewSession(id.NewReplayID(), shuffled, WithBaseInterval(time.Hour))
	defer session.Close()

	history := session.History()
	s.Require().Len(history, 1)
	s.Equal(events[0].ID, history[0].ID, "cursor 0 must point at the earliest event")
}

func (s *SessionSuite) TestPlayRunsToFinished() {
	session := s.newSession(4)
	session.Play()

	s.Require().Eventually(func() bool {
		return session.Status().State == StateFinished
	}, 2*time.Second, 5*time.Millisecond)

	status := session.Status()
	s.Equal(3, status.Cursor, "cursor never exceeds n-1")
	s.InDelta(100.0, status.Progress, 0.01)
	s.Len(session.History(), 4)
}

func (s *SessionSuite) TestCursorNeverExceedsBounds() {
	session := s.newSession(3)
	session.Play()

	deadline := time.Now().Add(500 * time.Millisecond)
	last := -1
	for time.Now().Before(deadline) {
		status := session.Status()
		s.GreaterOrEqual(status.Cursor, last, "cursor only moves forward")
		s.LessOrEqual(status.Cursor, 2)
		last = status.Cursor
		if status.State == StateFinished {
			break
		}
		time.Sleep(time.Millisecond)
	}
	s.Equal(StateFinished, session.Status().State)
}

func (s *SessionSuite) TestPauseHaltsAdvancement() {
	session := s.newSession(50)
	session.Play()

	s.Require().Eventually(func() bool {
		return session.Status().Cursor > 0
	}, 2*time.Second, time.Millisecond)

	session.Pause()
	status := session.Status()
	s.Equal(StatePaused, status.State)

	frozen := status.Cursor
	time.Sleep(80 * time.Millisecond)
	s.Equal(frozen, session.Status().Cursor, "paused cursor must not move")

	session.Play()
	s.Equal(StatePlaying, session.Status().State)
	s.Require().Eventually(func() bool {
		return session.Status().Cursor > frozen
	}, 2*time.Second, time.Millisecond)
}

func (s *SessionSuite) TestResetRewinds() {
	session := s.newSession(5)
	session.SkipToEnd()
	s.Equal(4, session.Status().Cursor)

	session.Reset()
	status := session.Status()
	s.Equal(StateStopped, status.State)
	s.Equal(0, status.Cursor)
	s.Len(session.History(), 1)
}

func (s *SessionSuite) TestSkipToEndFinishes() {
	session := s.newSession(5)
	session.SkipToEnd()

	status := session.Status()
	s.Equal(StateFinished, status.State)
	s.Equal(4, status.Cursor)
	s.InDelta(100.0, status.Progress, 0.01)
}

func (s *SessionSuite) TestPlayAfterFinishedIsNoOp() {
	session := s.newSession(3)
	session.SkipToEnd()

	session.Play()
	s.Equal(StateFinished, session.Status().State)
}

func (s *SessionSuite) TestSingleEventFinishesImmediately() {
	session := s.newSession(1)
	session.Play()
	s.Equal(StateFinished, session.Status().State)
}

func (s *SessionSuite) TestSpeedScalesInterval() {
	session := s.newSession(2)
	s.Equal(20*time.Millisecond, session.interval())

	session.SetSpeed(2)
	s.Equal(10*time.Millisecond, session.interval())

	session.SetSpeed(0.5)
	s.Equal(40*time.Millisecond, session.interval())
}

func (s *SessionSuite) TestInvalidSpeedIgnored() {
	session := s.newSession(2)
	session.SetSpeed(0)
	session.SetSpeed(-1)
	s.Equal(float64(1), session.Status().Speed)
}

func (s *SessionSuite) TestSpeedChangeWhilePlayingKeepsCursor() {
	session := s.newSession(200)
	session.Play()

	s.Require().Eventually(func() bool {
		return session.Status().Cursor > 1
	}, 2*time.Second, time.Millisecond)

	before := session.Status().Cursor
	session.SetSpeed(4)

	status := session.Status()
	s.Equal(StatePlaying, status.State)
	s.GreaterOrEqual(status.Cursor, before, "speed change must not rewind")
	s.Equal(float64(4), status.Speed)

	s.Require().Eventually(func() bool {
		return session.Status().Cursor > before
	}, 2*time.Second, time.Millisecond, "new timer must keep advancing")
}

func (s *SessionSuite) TestCloseStopsEverything() {
	session := s.newSession(100)
	session.Play()
	session.Close()

	cursor := session.Status().Cursor
	time.Sleep(80 * time.Millisecond)
	s.Equal(cursor, session.Status().Cursor)

	session.Play()
	s.NotEqual(StatePlaying, session.Status().State)

	session.Close() // idempotent
}

func (s *SessionSuite) TestDaySpan() {
	base := time.Date(2026, 4, 1, 23, 0, 0, 0, time.UTC)
	events := []event.Event{
		{ID: id.NewEventID(), CreatedAt: base},
		{ID: id.NewEventID(), CreatedAt: base.AddDate(0, 0, 2)},
		{ID: id.NewEventID(), CreatedAt: base.AddDate(0, 0, 4)},
	}
	session := NewSession(id.NewReplayID(), events, WithBaseInterval(time.Hour))
	defer session.Close()

	status := session.Status()
	s.Equal(5, status.DaySpan)
	s.Equal(1, status.Day)

	session.SkipToEnd()
	status = session.Status()
	s.Equal(5, status.Day)
}
