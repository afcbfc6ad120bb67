// Package handler exposes the time machine over HTTP: aggregated stats,
// the evolution narrative, calendar views, replay sessions and text reports,
// all computed from the in-memory event snapshot.
package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pitlog/internal/event"
	"pitlog/internal/timemachine/aggregate"
	"pitlog/internal/timemachine/calendar"
	"pitlog/internal/timemachine/evolution"
	"pitlog/internal/timemachine/metrics"
	"pitlog/internal/timemachine/replay"
	"pitlog/internal/timemachine/report"
	dErrors "pitlog/pkg/domain-errors"
	"pitlog/pkg/platform/httputil"
	pstrings "pitlog/pkg/platform/strings"
	"pitlog/pkg/requestcontext"
)

// Snapshot is the read side the handler serves from. Implemented by
// snapshot.Cache.
type Snapshot interface {
	Events() []event.Event
	LastRefresh() (time.Time, error)
}

type Handler struct {
	snapshot  Snapshot
	replays   *replay.Manager
	extractor *evolution.Extractor
	metrics   *metrics.Metrics
	loc       *time.Location
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Handler)

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLocation sets the timezone used for histograms, calendars and report
// timestamps. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.loc = loc
		}
	}
}

func New(snap Snapshot, replays *replay.Manager, extractor *evolution.Extractor, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		snapshot:  snap,
		replays:   replays,
		extractor: extractor,
		loc:       time.UTC,
		logger:    logger,
		tracer:    otel.Tracer("pitlog/timemachine"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/timemachine", func(r chi.Router) {
		r.Get("/stats", h.HandleStats)
		r.Get("/evolution", h.HandleEvolution)
		r.Get("/calendar/{year}/{month}", h.HandleCalendarMonth)
		r.Get("/calendar/{year}/{month}/day/{day}", h.HandleCalendarDay)
		r.Get("/reports/{kind}", h.HandleReport)

		r.Route("/replay", func(r chi.Router) {
			r.Post("/", h.HandleReplayCreate)
			r.Get("/{replayID}", h.HandleReplayStatus)
			r.Get("/{replayID}/history", h.HandleReplayHistory)
			r.Post("/{replayID}/play", h.replayAction((*replay.Session).Play))
			r.Post("/{replayID}/pause", h.replayAction((*replay.Session).Pause))
			r.Post("/{replayID}/reset", h.replayAction((*replay.Session).Reset))
			r.Post("/{replayID}/skip-to-end", h.replayAction((*replay.Session).SkipToEnd))
			r.Post("/{replayID}/speed", h.HandleReplaySpeed)
			r.Delete("/{replayID}", h.HandleReplayDelete)
		})
	})
}

// StatsResponse wraps the aggregate bundle with snapshot freshness.
type StatsResponse struct {
	aggregate.Stats
	RefreshedAt time.Time `json:"refreshed_at"`
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	events := h.snapshot.Events()
	categories, err := parseCategories(r.URL.Query().Get("categories"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(categories) > 0 {
		events = aggregate.FilterByCategories(events, categories)
	}

	_, span := h.tracer.Start(r.Context(), "timemachine.ComputeStats",
		trace.WithAttributes(attribute.Int("events", len(events))))
	stats := aggregate.Compute(events, h.loc)
	span.End()
	h.metrics.ObserveStats(time.Since(started).Seconds())

	refreshedAt, _ := h.snapshot.LastRefresh()
	httputil.WriteJSON(w, http.StatusOK, StatsResponse{Stats: stats, RefreshedAt: refreshedAt})
}

// EvolutionResponse carries the project milestone narrative in chronological
// order.
type EvolutionResponse struct {
	Milestones []evolution.Milestone `json:"milestones"`
}

func (h *Handler) HandleEvolution(w http.ResponseWriter, _ *http.Request) {
	milestones := h.extractor.Extract(h.snapshot.Events())
	if milestones == nil {
		milestones = []evolution.Milestone{}
	}
	httputil.WriteJSON(w, http.StatusOK, EvolutionResponse{Milestones: milestones})
}

func (h *Handler) HandleCalendarMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	grid := calendar.MonthGrid(h.snapshot.Events(), year, month, h.loc)
	httputil.WriteJSON(w, http.StatusOK, grid)
}

func (h *Handler) HandleCalendarDay(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 || day > 31 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid day"))
		return
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, h.loc)
	events := calendar.DayEvents(h.snapshot.Events(), date, h.loc)
	if events == nil {
		events = []event.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"date":   date.Format("2006-01-02"),
		"events": events,
	})
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	kind := report.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown report kind: "+string(kind)))
		return
	}

	events := h.snapshot.Events()
	generatedAt := requestcontext.Now(r.Context()).In(h.loc)
	def, in := h.buildReport(kind, events)

	h.metrics.IncReport(string(kind))

	doc := report.Generate(def, in, generatedAt)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", report.Filename(def, generatedAt)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

func (h *Handler) buildReport(kind report.Kind, events []event.Event) (report.Definition, report.Input) {
	weeks := aggregate.WeeklyCounts(events, h.loc)
	rollups := aggregate.MemberRollups(events, h.loc)

	total := report.Stat{Label: "Total de eventos", Value: strconv.Itoa(len(events))}

	switch kind {
	case report.KindMembers:
		def := report.Definition{
			Kind:  kind,
			Title: "Relatório de Membros",
			Stats: []report.Stat{
				total,
				{Label: "Membros ativos", Value: strconv.Itoa(len(rollups))},
			},
		}
		return def, report.Input{Rollups: rollups}
	case report.KindWeekly:
		def := report.Definition{
			Kind:  kind,
			Title: "Relatório Semanal",
			Stats: []report.Stat{
				total,
				{Label: "Semanas com atividade", Value: strconv.Itoa(len(weeks))},
			},
		}
		return def, report.Input{Weeks: weeks}
	default:
		def := report.Definition{
			Kind:  kind,
			Title: "Relatório Completo de Atividades",
			Stats: []report.Stat{total},
		}
		return def, report.Input{Events: events}
	}
}

func parseYearMonth(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		return 0, 0, dErrors.New(dErrors.CodeInvalidInput, "invalid year")
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, dErrors.New(dErrors.CodeInvalidInput, "invalid month")
	}
	return year, time.Month(month), nil
}

func parseCategories(raw string) ([]event.Category, error) {
	if raw == "" {
		return nil, nil
	}

	var categories []event.Category
	for _, part := range pstrings.DedupeAndTrim(strings.Split(raw, ",")) {
		c := event.Category(part)
		if !c.Valid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown category: "+part)
		}
		categories = append(categories, c)
	}
	return categories, nil
}
