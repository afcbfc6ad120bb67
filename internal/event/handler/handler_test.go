package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitlog/internal/event"
	"pitlog/internal/event/service"
	id "pitlog/pkg/domain"
)

type stubService struct {
	logged     bool
	lastParams service.Params

	events []event.Event
	err    error
}

func (s *stubService) LogEvent(_ context.Context, p service.Params) bool {
	s.lastParams = p
	return s.logged
}

func (s *stubService) ListAll(context.Context) ([]event.Event, error) {
	return s.events, s.err
}

func (s *stubService) ListRecent(_ context.Context, limit int) ([]event.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubService) ListByMember(context.Context, id.MemberID) ([]event.Event, error) {
	return s.events, s.err
}

type EventHandlerSuite struct {
	suite.Suite

	service *stubService
	router  chi.Router
}

func TestEventHandlerSuite(t *testing.T) {
	suite.Run(t, new(EventHandlerSuite))
}

func (s *EventHandlerSuite) SetupTest() {
	s.service = &stubService{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *EventHandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, target, reader))
	return w
}

func (s *EventHandlerSuite) TestHandleLog() {
	s.Run("accepted event responds logged true", func() {
		s.service.logged = true
		w := s.do(http.MethodPost, "/events", `{
			"event_type": "creation",
			"event_category": "goal",
			"title": "Meta criada: classificação regional"
		}`)

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"logged":true}`, w.Body.String())
		s.Equal(event.TypeCreation, s.service.lastParams.Type)
		s.Equal(event.CategoryGoal, s.service.lastParams.Category)
	})

	s.Run("soft failure responds 200 with logged false", func() {
		s.service.logged = false
		w := s.do(http.MethodPost, "/events", `{
			"event_type": "creation",
			"event_category": "goal",
			"title": "Meta criada"
		}`)

		s.Equal(http.StatusOK, w.Code, "ingestion failures are soft, never HTTP errors")
		s.JSONEq(`{"logged":false}`, w.Body.String())
	})

	s.Run("malformed body is a bad request", func() {
		w := s.do(http.MethodPost, "/events", `{not json`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("malformed related event id is invalid input", func() {
		w := s.do(http.MethodPost, "/events", `{
			"event_type": "iteration",
			"event_category": "iteration",
			"title": "Iteração",
			"related_event_id": "nope"
		}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *EventHandlerSuite) TestHandleListAll() {
	now := time.Now()
	s.service.events = []event.Event{
		{ID: id.NewEventID(), Category: event.CategoryGoal, Title: "a", CreatedAt: now},
		{ID: id.NewEventID(), Category: event.CategoryTask, Title: "b", CreatedAt: now.Add(time.Minute)},
	}

	s.Run("returns the full log", func() {
		w := s.do(http.MethodGet, "/events", "")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp EventsResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Len(resp.Events, 2)
	})

	s.Run("category filter narrows without reordering", func() {
		w := s.do(http.MethodGet, "/events?categories=task", "")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp EventsResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Require().Len(resp.Events, 1)
		s.Equal("b", resp.Events[0].Title)
	})

	s.Run("unknown category is rejected", func() {
		w := s.do(http.MethodGet, "/events?categories=nonsense", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *EventHandlerSuite) TestHandleListRecent() {
	for i := 0; i < 30; i++ {
		s.service.events = append(s.service.events, event.Event{ID: id.NewEventID()})
	}

	s.Run("default limit", func() {
		w := s.do(http.MethodGet, "/events/recent", "")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp EventsResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Len(resp.Events, defaultRecentLimit)
	})

	s.Run("explicit limit", func() {
		w := s.do(http.MethodGet, "/events/recent?limit=5", "")
		var resp EventsResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Len(resp.Events, 5)
	})

	s.Run("invalid limit is rejected", func() {
		w := s.do(http.MethodGet, "/events/recent?limit=zero", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *EventHandlerSuite) TestHandleListByMember() {
	s.Run("valid member id", func() {
		s.service.events = []event.Event{{ID: id.NewEventID()}}
		w := s.do(http.MethodGet, "/members/"+uuid.NewString()+"/events", "")
		s.Require().Equal(http.StatusOK, w.Code)

		var resp EventsResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Len(resp.Events, 1)
	})

	s.Run("malformed member id", func() {
		w := s.do(http.MethodGet, "/members/abc/events", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}
