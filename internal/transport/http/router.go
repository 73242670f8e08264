// Package httptransport assembles the chi router: global middleware, public
// probes, and the authenticated customer and admin route groups.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	audithandler "trustbank/internal/audit/handler"
	consenthandler "trustbank/internal/consent/handler"
	decisionhandler "trustbank/internal/decision/handler"
	"trustbank/internal/platform/metrics"
	"trustbank/internal/platform/middleware"
	profilehandler "trustbank/internal/profile/handler"
	ratelimit "trustbank/internal/ratelimit/middleware"
	"trustbank/pkg/platform/httputil"
	"trustbank/pkg/requestcontext"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the handlers and platform pieces the router mounts.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Validator      middleware.JWTValidator
	RequestTimeout time.Duration
	Checks         map[string]HealthCheck

	// RateLimit may be nil, which disables per-user quotas.
	RateLimit *ratelimit.Middleware
	Quota     ratelimit.Quota

	Consent   *consenthandler.Handler
	Profile   *profilehandler.Handler
	Decisions *decisionhandler.Handler
	Audit     *audithandler.Handler
}

// NewRouter wires all endpoints. Customer routes need any valid token; the
// /admin group additionally requires the admin role.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.LatencyMiddleware(d.Metrics))
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	r.Get("/healthz", healthHandler(d.Checks))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(d.Validator, d.Logger))
		r.Use(d.RateLimit.RateLimitUser("api", d.Quota))

		d.Consent.Register(r)
		d.Profile.Register(r)
		d.Decisions.RegisterCustomer(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(requestcontext.RoleAdmin, d.Logger))
			d.Decisions.RegisterAdmin(r)
			d.Audit.RegisterAdmin(r)
		})
	})
	return r
}

type healthResponse struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var failed []string
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			sort.Strings(failed)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Failed: failed})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
