// Package httptransport assembles the public HTTP surface: middleware chain,
// feature handlers, health and metrics endpoints. Handlers register their own
// routes; this package only wires them together.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pitlog/pkg/platform/httputil"
	"pitlog/pkg/platform/middleware/auth"
	"pitlog/pkg/platform/middleware/clientinfo"
	"pitlog/pkg/platform/middleware/ratelimit"
	"pitlog/pkg/platform/middleware/requestid"
	"pitlog/pkg/platform/middleware/requesttime"
)

// Registrar is anything exposing routes on the shared router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one backing resource.
type HealthChecker func() error

// Deps carries everything the router needs. TokenValidator may be nil only in
// tests; Limiter nil disables ingestion rate limiting.
type Deps struct {
	Events      Registrar
	TimeMachine Registrar
	ViewState   Registrar

	TokenValidator auth.TokenValidator
	Limiter        *ratelimit.Limiter
	Health         map[string]HealthChecker
	Logger         *slog.Logger
}

// NewRouter builds the full application router. Identity is populated (not
// required) on every route so ingestion can soft-fail for anonymous callers.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(clientinfo.Middleware)
	if deps.TokenValidator != nil {
		r.Use(auth.Populate(deps.TokenValidator, deps.Logger))
	}

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Middleware)
		}
		deps.Events.Register(r)
	})

	deps.TimeMachine.Register(r)
	deps.ViewState.Register(r)

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK

		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}

		httputil.WriteJSON(w, status, resp)
	}
}
