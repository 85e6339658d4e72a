package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/pkg/platform/middleware/admin"
	"bloodlink/pkg/platform/middleware/request"
	"bloodlink/pkg/platform/validation"
)

// Module is a bounded context's HTTP surface. Register mounts public routes;
// RegisterAdmin mounts routes that sit behind the admin token.
type Module interface {
	Register(r chi.Router)
	RegisterAdmin(r chi.Router)
}

// PlatformRoutes mounts health probes and similar unauthenticated endpoints.
type PlatformRoutes interface {
	Register(r chi.Router)
}

type Config struct {
	AdminToken     string
	RequestTimeout time.Duration
	// Latency is optional; nil disables endpoint latency metrics.
	Latency *request.Metrics
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter wires all endpoints with the middleware stack.
func NewRouter(cfg Config, logger *slog.Logger, platform PlatformRoutes, modules ...Module) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(request.ClientIP)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Latency, routePattern))

	if platform != nil {
		platform.Register(r)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(request.BodyLimit(validation.MaxBodySize))
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}

		for _, m := range modules {
			m.Register(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(cfg.AdminToken, logger))
			for _, m := range modules {
				m.RegisterAdmin(r)
			}
		})
	})

	return r
}

// routePattern reports the matched chi pattern, e.g. /donors/{id}.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
