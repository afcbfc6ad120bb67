package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

// Store invariants (monotonic timestamps, ascending order, copy-on-read) are
// exercised here because handler tests never observe persistence semantics.
type MemoryStoreSuite struct {
	suite.Suite
	store *Store
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
}

func (s *MemoryStoreSuite) TestAppend() {
	ctx := context.Background()

	s.Run("assigns id and created_at", func() {
		stored, err := s.store.Append(ctx, event.Event{
			Type:     event.TypeCreation,
			Category: event.CategoryGoal,
			Title:    "Meta criada: vencer regional",
		})
		s.Require().NoError(err)
		s.False(stored.ID.IsNil())
		s.False(stored.CreatedAt.IsZero())
	})

	s.Run("timestamps are strictly increasing even with a frozen clock", func() {
		frozen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		store := New(WithClock(func() time.Time { return frozen }))

		first, err := store.Append(ctx, event.Event{Title: "a"})
		s.Require().NoError(err)
		second, err := store.Append(ctx, event.Event{Title: "b"})
		s.Require().NoError(err)

		s.True(second.CreatedAt.After(first.CreatedAt))
	})
}

func (s *MemoryStoreSuite) TestListAll() {
	ctx := context.Background()

	s.Run("empty store returns empty slice", func() {
		events, err := s.store.ListAll(ctx)
		s.Require().NoError(err)
		s.Empty(events)
	})

	s.Run("returns events ascending by created_at", func() {
		for _, title := range []string{"first", "second", "third"} {
			_, err := s.store.Append(ctx, event.Event{Title: title})
			s.Require().NoError(err)
		}

		events, err := s.store.ListAll(ctx)
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.Equal("first", events[0].Title)
		s.Equal("third", events[2].Title)
		s.True(events[0].CreatedAt.Before(events[2].CreatedAt))
	})

	s.Run("returned slice is a copy", func() {
		_, err := s.store.Append(ctx, event.Event{Title: "original"})
		s.Require().NoError(err)

		events, err := s.store.ListAll(ctx)
		s.Require().NoError(err)
		events[0].Title = "mutated"

		again, err := s.store.ListAll(ctx)
		s.Require().NoError(err)
		s.Equal("original", again[0].Title)
	})
}

func (s *MemoryStoreSuite) TestListRecent() {
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := s.store.Append(ctx, event.Event{Title: title})
		s.Require().NoError(err)
	}

	s.Run("returns most recent first", func() {
		events, err := s.store.ListRecent(ctx, 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal("c", events[0].Title)
		s.Equal("b", events[1].Title)
	})

	s.Run("limit above size truncates to size", func() {
		events, err := s.store.ListRecent(ctx, 99)
		s.Require().NoError(err)
		s.Len(events, 3)
	})

	s.Run("negative limit yields empty", func() {
		events, err := s.store.ListRecent(ctx, -1)
		s.Require().NoError(err)
		s.Empty(events)
	})
}

func (s *MemoryStoreSuite) TestListByMember() {
	ctx := context.Background()
	alice := id.MemberID(uuid.New())
	bob := id.MemberID(uuid.New())

	_, err := s.store.Append(ctx, event.Event{Title: "by alice", MemberID: alice})
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, event.Event{Title: "system event"})
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, event.Event{Title: "by bob", MemberID: bob})
	s.Require().NoError(err)

	events, err := s.store.ListByMember(ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("by alice", events[0].Title)
}
