package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pitlog/internal/event"
	"pitlog/internal/event/store"
	"pitlog/mocks/eventstore"
	id "pitlog/pkg/domain"
)

type CacheSuite struct {
	suite.Suite

	ctrl  *gomock.Controller
	store *eventstore.MockStore
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = eventstore.NewMockStore(s.ctrl)
}

func (s *CacheSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CacheSuite) events(n int) []event.Event {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	events := make([]event.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, event.Event{
			ID:        id.NewEventID(),
			Category:  event.CategoryTask,
			Title:     "event",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return events
}

func (s *CacheSuite) TestRefreshReplacesSnapshot() {
	ctx := context.Background()
	cache := New(s.store)

	s.store.EXPECT().ListAll(ctx).Return(s.events(3), nil)
	s.Require().NoError(cache.Refresh(ctx))
	s.Equal(3, cache.Len())

	refreshedAt, err := cache.LastRefresh()
	s.NoError(err)
	s.False(refreshedAt.IsZero())

	s.store.EXPECT().ListAll(ctx).Return(s.events(5), nil)
	s.Require().NoError(cache.Refresh(ctx))
	s.Equal(5, cache.Len(), "the snapshot is replaced wholesale")
}

func (s *CacheSuite) TestRefreshFailureKeepsOldSnapshot() {
	ctx := context.Background()
	cache := New(s.store)

	s.store.EXPECT().ListAll(ctx).Return(s.events(3), nil)
	s.Require().NoError(cache.Refresh(ctx))

	s.store.EXPECT().ListAll(ctx).Return(nil, errors.New("connection reset"))
	err := cache.Refresh(ctx)
	s.Require().Error(err)
	s.Equal(3, cache.Len(), "failed refresh must not clear the cache")

	_, lastErr := cache.LastRefresh()
	s.Error(lastErr)

	s.Run("next successful refresh clears the error", func() {
		s.store.EXPECT().ListAll(ctx).Return(s.events(4), nil)
		s.Require().NoError(cache.Refresh(ctx))
		_, lastErr := cache.LastRefresh()
		s.NoError(lastErr)
	})
}

func (s *CacheSuite) TestEmptyCacheIsUsable() {
	cache := New(s.store)
	s.Equal(0, cache.Len())
	s.Empty(cache.Events())

	refreshedAt, err := cache.LastRefresh()
	s.True(refreshedAt.IsZero())
	s.NoError(err)
}

func (s *CacheSuite) TestWatchRefreshesOnSignal() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := New(s.store)
	fanout := store.NewFanout()

	refreshed := make(chan struct{}, 4)
	s.store.EXPECT().ListAll(gomock.Any()).DoAndReturn(
		func(context.Context) ([]event.Event, error) {
			refreshed <- struct{}{}
			return s.events(2), nil
		},
	).MinTimes(1)

	done := make(chan error, 1)
	go func() { done <- cache.Watch(ctx, fanout) }()

	// The subscription registers asynchronously; keep signalling until the
	// watcher reacts.
	s.Require().Eventually(func() bool {
		s.Require().NoError(fanout.Notify(ctx))
		select {
		case <-refreshed:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "watch did not refresh on change signal")
	s.Eventually(func() bool { return cache.Len() == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(2 * time.Second):
		s.FailNow("watch did not stop on context cancellation")
	}
}

func (s *CacheSuite) TestWatchSurvivesRefreshFailure() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := New(s.store)
	fanout := store.NewFanout()

	attempts := make(chan struct{}, 4)
	first := s.store.EXPECT().ListAll(gomock.Any()).DoAndReturn(
		func(context.Context) ([]event.Event, error) {
			attempts <- struct{}{}
			return nil, errors.New("store down")
		},
	)
	s.store.EXPECT().ListAll(gomock.Any()).DoAndReturn(
		func(context.Context) ([]event.Event, error) {
			attempts <- struct{}{}
			return s.events(1), nil
		},
	).After(first).AnyTimes()

	done := make(chan error, 1)
	go func() { done <- cache.Watch(ctx, fanout) }()

	notifyUntil := func(reacted func() bool, msg string) {
		s.Require().Eventually(func() bool {
			s.Require().NoError(fanout.Notify(ctx))
			return reacted()
		}, 2*time.Second, 10*time.Millisecond, msg)
	}

	drained := func() bool {
		select {
		case <-attempts:
			return true
		default:
			return false
		}
	}

	notifyUntil(drained, "watch did not attempt a refresh")
	notifyUntil(drained, "watch stopped after a refresh failure")

	s.Eventually(func() bool { return cache.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
