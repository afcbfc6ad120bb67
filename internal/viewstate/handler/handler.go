// Package handler exposes the view-state store over HTTP. State payloads are
// opaque JSON blobs stored and returned verbatim.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pitlog/internal/viewstate"
	dErrors "pitlog/pkg/domain-errors"
	"pitlog/pkg/platform/httputil"
	"pitlog/pkg/platform/sentinel"
)

// maxStateBytes caps one widget's state payload.
const maxStateBytes = 64 * 1024

type Handler struct {
	store  viewstate.Store
	logger *slog.Logger
}

func New(store viewstate.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/viewstate/{route}/{widget}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandleSet)
		r.Delete("/", h.HandleClear)
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	route, widget := params(r)

	state, err := h.store.Get(r.Context(), route, widget)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "no state for widget"))
			return
		}
		h.logger.Error("viewstate get failed", slog.String("error", err.Error()))
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(state)
}

func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	route, widget := params(r)

	state, err := io.ReadAll(io.LimitReader(r.Body, maxStateBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "reading body"))
		return
	}
	if len(state) > maxStateBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "state too large"))
		return
	}
	if !json.Valid(state) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "state must be valid JSON"))
		return
	}

	if err := h.store.Set(r.Context(), route, widget, state); err != nil {
		h.logger.Error("viewstate set failed", slog.String("error", err.Error()))
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	route, widget := params(r)

	if err := h.store.Clear(r.Context(), route, widget); err != nil {
		h.logger.Error("viewstate clear failed", slog.String("error", err.Error()))
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func params(r *http.Request) (route, widget string) {
	return chi.URLParam(r, "route"), chi.URLParam(r, "widget")
}
