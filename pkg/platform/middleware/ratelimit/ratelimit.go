// Package ratelimit throttles event ingestion per caller with in-process
// token buckets. One bucket per authenticated member, falling back to the
// client IP for anonymous requests.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	dErrors "pitlog/pkg/domain-errors"
	"pitlog/pkg/platform/httputil"
	"pitlog/pkg/requestcontext"
)

// Limiter hands out one token bucket per caller key.
type Limiter struct {
	limit  rate.Limit
	burst  int
	logger *slog.Logger

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a limiter allowing perSecond sustained requests with the given
// burst per caller.
func New(perSecond float64, burst int, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		logger:  logger,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	return b
}

// Middleware rejects callers that exhausted their bucket with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)
		if !l.bucket(key).Allow() {
			l.logger.WarnContext(r.Context(), "ingestion rate limited",
				"caller", key,
				"request_id", requestcontext.RequestID(r.Context()),
			)
			w.Header().Set("Retry-After", "1")
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             string(dErrors.CodeUnavailable),
				"error_description": "too many requests",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if memberID := requestcontext.MemberID(r.Context()); !memberID.IsNil() {
		return "member:" + memberID.String()
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
