package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"pitlog/internal/viewstate/memory"
)

type ViewStateHandlerSuite struct {
	suite.Suite

	router chi.Router
}

func TestViewStateHandlerSuite(t *testing.T) {
	suite.Run(t, new(ViewStateHandlerSuite))
}

func (s *ViewStateHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(memory.New(), logger).Register(s.router)
}

func (s *ViewStateHandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, target, reader))
	return w
}

func (s *ViewStateHandlerSuite) TestRoundTrip() {
	s.Run("put then get returns the payload verbatim", func() {
		put := s.do(http.MethodPut, "/viewstate/dashboard/feed", `{"collapsed": true, "page": 3}`)
		s.Require().Equal(http.StatusNoContent, put.Code)

		get := s.do(http.MethodGet, "/viewstate/dashboard/feed", "")
		s.Require().Equal(http.StatusOK, get.Code)
		s.JSONEq(`{"collapsed": true, "page": 3}`, get.Body.String())
	})

	s.Run("widgets are independent", func() {
		s.do(http.MethodPut, "/viewstate/dashboard/feed", `{"page": 1}`)
		s.do(http.MethodPut, "/viewstate/dashboard/chart", `{"zoom": 2}`)

		get := s.do(http.MethodGet, "/viewstate/dashboard/chart", "")
		s.JSONEq(`{"zoom": 2}`, get.Body.String())
	})
}

func (s *ViewStateHandlerSuite) TestGetMissing() {
	w := s.do(http.MethodGet, "/viewstate/dashboard/absent", "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ViewStateHandlerSuite) TestSetRejectsBadPayloads() {
	s.Run("invalid json", func() {
		w := s.do(http.MethodPut, "/viewstate/dashboard/feed", `{broken`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("oversized state", func() {
		w := s.do(http.MethodPut, "/viewstate/dashboard/feed", `"`+strings.Repeat("x", maxStateBytes)+`"`)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *ViewStateHandlerSuite) TestClear() {
	s.Run("clearing stored state removes it", func() {
		s.do(http.MethodPut, "/viewstate/dashboard/feed", `{"page": 1}`)
		s.Require().Equal(http.StatusNoContent, s.do(http.MethodDelete, "/viewstate/dashboard/feed", "").Code)
		s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/viewstate/dashboard/feed", "").Code)
	})

	s.Run("clearing an absent key is fine", func() {
		s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/viewstate/dashboard/absent", "").Code)
	})
}
