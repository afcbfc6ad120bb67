// Package handler wires the event log endpoints to the ingestion service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pitlog/internal/event"
	"pitlog/internal/event/service"
	"pitlog/internal/timemachine/aggregate"
	id "pitlog/pkg/domain"
	dErrors "pitlog/pkg/domain-errors"
	"pitlog/pkg/platform/httputil"
	"pitlog/pkg/requestcontext"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// Service defines what the handler needs from the ingestion service.
type Service interface {
	LogEvent(ctx context.Context, p service.Params) bool
	ListAll(ctx context.Context) ([]event.Event, error)
	ListRecent(ctx context.Context, limit int) ([]event.Event, error)
	ListByMember(ctx context.Context, memberID id.MemberID) ([]event.Event, error)
}

// Handler wires event endpoints to the event service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an event handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts event endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/events", h.HandleLog)
	r.Get("/events", h.HandleListAll)
	r.Get("/events/recent", h.HandleListRecent)
	r.Get("/members/{memberID}/events", h.HandleListByMember)
}

// HandleLog handles POST /events. The response is always 200 with the
// boolean ingestion outcome; failures are soft by contract.
func (h *Handler) HandleLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[LogRequest](w, r, h.logger)
	if !ok {
		return
	}

	params, err := req.ToParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	logged := h.service.LogEvent(ctx, params)

	h.logger.InfoContext(ctx, "event ingestion handled",
		"request_id", requestcontext.RequestID(ctx),
		"category", req.Category,
		"type", req.Type,
		"logged", logged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, LogResponse{Logged: logged})
}

// HandleListAll handles GET /events, full log ascending. An optional
// categories query narrows the result without reordering it.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := parseCategories(r.URL.Query().Get("categories"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.service.ListAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing events failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, EventsResponse{
		Events: aggregate.FilterByCategories(events, categories),
	})
}

// HandleListRecent handles GET /events/recent?limit=n, most recent first.
func (h *Handler) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxRecentLimit)
	}

	events, err := h.service.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing recent events failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{Events: events})
}

// HandleListByMember handles GET /members/{memberID}/events.
func (h *Handler) HandleListByMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid member id"))
		return
	}

	events, err := h.service.ListByMember(ctx, memberID)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing member events failed",
			"request_id", requestcontext.RequestID(ctx),
			"member_id", memberID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{Events: events})
}
