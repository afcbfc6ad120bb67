// Package service implements the ingestion API. LogEvent is the single write
// primitive for the whole application; every feature area records activity
// through it or through the title-formatting helpers in titles.go.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pitlog/internal/event"
	"pitlog/internal/event/metrics"
	"pitlog/internal/event/store"
	id "pitlog/pkg/domain"
	dErrors "pitlog/pkg/domain-errors"
	"pitlog/pkg/requestcontext"
)

// Publisher streams accepted events to external consumers. Fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

// Params carries the caller-supplied fields of a new event. ID, CreatedAt and
// the acting member are never caller-supplied: the store assigns the former,
// the request context provides the latter.
type Params struct {
	Type           event.Type
	Category       event.Category
	Title          string
	Description    string
	Metadata       event.Metadata
	RelatedEventID id.EventID
	Attachments    []event.Attachment
}

type Service struct {
	store     store.Store
	notifier  store.Notifier
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithNotifier wires a change-feed notifier for stores that do not push their
// own signals (memory, sqlite). The postgres store self-notifies.
func WithNotifier(n store.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "event store is required")
	}

	svc := &Service{
		store:  st,
		logger: slog.Default(),
		tracer: otel.Tracer("pitlog/event"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// LogEvent appends one immutable event and reports success. It never returns
// an error: an unauthenticated caller, invalid params, or a store failure all
// soft-fail with false so UI flows are never interrupted by logging.
func (s *Service) LogEvent(ctx context.Context, p Params) bool {
	ctx, span := s.tracer.Start(ctx, "event.LogEvent",
		trace.WithAttributes(
			attribute.String("event.category", string(p.Category)),
			attribute.String("event.type", string(p.Type)),
		))
	defer span.End()

	memberID := requestcontext.MemberID(ctx)
	if memberID.IsNil() {
		s.metrics.IncFailure("unauthenticated")
		s.logger.WarnContext(ctx, "event dropped: no authenticated member",
			"title", p.Title)
		return false
	}

	if strings.TrimSpace(p.Title) == "" || !p.Type.Valid() || !p.Category.Valid() {
		s.metrics.IncFailure("invalid")
		s.logger.WarnContext(ctx, "event dropped: invalid params",
			"member_id", memberID,
			"category", p.Category,
			"type", p.Type)
		return false
	}

	e := event.Event{
		Type:           p.Type,
		Category:       p.Category,
		Title:          p.Title,
		Description:    p.Description,
		Metadata:       s.enrich(ctx, p.Metadata),
		MemberID:       memberID,
		RelatedEventID: p.RelatedEventID,
		Attachments:    p.Attachments,
	}
	if name := requestcontext.MemberName(ctx); name != "" {
		e.Member = &event.Member{Name: name}
	}

	start := time.Now()
	stored, err := s.store.Append(ctx, e)
	if err != nil {
		s.metrics.IncFailure("store")
		s.logger.ErrorContext(ctx, "event append failed",
			"member_id", memberID,
			"category", p.Category,
			"error", err)
		return false
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx); err != nil {
			// The write landed; a lost signal only delays the next refetch.
			s.logger.WarnContext(ctx, "change notification failed", "error", err)
		}
	}
	s.metrics.ObserveAppend(time.Since(start).Seconds())
	s.metrics.IncLogged(string(stored.Category), string(stored.Type))

	if s.publisher != nil {
		s.publisher.Publish(ctx, stored)
	}

	s.logger.InfoContext(ctx, "event logged",
		"event_id", stored.ID,
		"member_id", memberID,
		"category", stored.Category,
		"type", stored.Type)
	return true
}

// enrich copies caller metadata and folds in client facts recorded by the
// middleware. The caller's map is never mutated.
func (s *Service) enrich(ctx context.Context, m event.Metadata) event.Metadata {
	client := requestcontext.Client(ctx)
	if client.Platform == "" && len(m) == 0 {
		return nil
	}

	out := make(event.Metadata, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	if client.Platform != "" {
		out["client_platform"] = client.Platform
		if client.Mobile {
			out["client_mobile"] = true
		}
	}
	return out
}

// ListAll returns the full log ascending by created_at.
func (s *Service) ListAll(ctx context.Context) ([]event.Event, error) {
	events, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read event log")
	}
	return events, nil
}

// ListRecent returns up to limit events, most recent first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]event.Event, error) {
	if limit <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "limit must be positive")
	}
	events, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read event log")
	}
	return events, nil
}

// ListByMember returns one member's events ascending by created_at.
func (s *Service) ListByMember(ctx context.Context, memberID id.MemberID) ([]event.Event, error) {
	if memberID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "member id is required")
	}
	events, err := s.store.ListByMember(ctx, memberID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read member events")
	}
	return events, nil
}
