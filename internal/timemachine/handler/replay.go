package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pitlog/internal/event"
	"pitlog/internal/timemachine/aggregate"
	"pitlog/internal/timemachine/replay"
	id "pitlog/pkg/domain"
	dErrors "pitlog/pkg/domain-errors"
	"pitlog/pkg/platform/httputil"
	"pitlog/pkg/platform/sentinel"
)

// CreateReplayRequest optionally narrows the session to a category subset of
// the snapshot.
type CreateReplayRequest struct {
	Categories []string `json:"categories,omitempty"`
}

// SpeedRequest sets the playback multiplier. Must be positive.
type SpeedRequest struct {
	Speed float64 `json:"speed"`
}

func (h *Handler) HandleReplayCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateReplayRequest
	if r.ContentLength > 0 {
		decoded, ok := httputil.Decode[CreateReplayRequest](w, r, h.logger)
		if !ok {
			return
		}
		req = decoded
	}

	events := h.snapshot.Events()
	if len(req.Categories) > 0 {
		var categories []event.Category
		for _, raw := range req.Categories {
			c := event.Category(raw)
			if !c.Valid() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown category: "+raw))
				return
			}
			categories = append(categories, c)
		}
		events = aggregate.FilterByCategories(events, categories)
	}

	session, err := h.replays.Create(events)
	if err != nil {
		h.writeReplayError(w, err)
		return
	}

	h.metrics.SetReplaySessions(h.replays.Len())
	h.logger.Info("replay session created",
		slog.String("replay_id", session.ID().String()),
		slog.Int("events", session.Len()))
	httputil.WriteJSON(w, http.StatusCreated, session.Status())
}

func (h *Handler) HandleReplayStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.Status())
}

// HistoryResponse is every event at or before the session cursor, ascending.
type HistoryResponse struct {
	Events []event.Event `json:"events"`
}

func (h *Handler) HandleReplayHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	events := session.History()
	if events == nil {
		events = []event.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Events: events})
}

// replayAction wraps the argument-less session transitions (play, pause,
// reset, skip-to-end): apply, then return the fresh status.
func (h *Handler) replayAction(apply func(*replay.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.session(w, r)
		if !ok {
			return
		}
		apply(session)
		httputil.WriteJSON(w, http.StatusOK, session.Status())
	}
}

func (h *Handler) HandleReplaySpeed(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	req, ok := httputil.Decode[SpeedRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Speed <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "speed must be positive"))
		return
	}

	session.SetSpeed(req.Speed)
	httputil.WriteJSON(w, http.StatusOK, session.Status())
}

func (h *Handler) HandleReplayDelete(w http.ResponseWriter, r *http.Request) {
	replayID, err := id.ParseReplayID(chi.URLParam(r, "replayID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid replay id"))
		return
	}

	if err := h.replays.Delete(replayID); err != nil {
		h.writeReplayError(w, err)
		return
	}

	h.metrics.SetReplaySessions(h.replays.Len())
	w.WriteHeader(http.StatusNoContent)
}

// session resolves the {replayID} URL param to a live session, writing the
// error response itself when it cannot.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*replay.Session, bool) {
	replayID, err := id.ParseReplayID(chi.URLParam(r, "replayID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid replay id"))
		return nil, false
	}

	session, err := h.replays.Get(replayID)
	if err != nil {
		h.writeReplayError(w, err)
		return nil, false
	}
	return session, true
}

func (h *Handler) writeReplayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "replay session not found"))
	case errors.Is(err, sentinel.ErrClosed):
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "replay manager shutting down"))
	default:
		httputil.WriteError(w, err)
	}
}
