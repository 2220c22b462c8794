package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ShatskikhS/NotifyMe/internal/api/handler"
	apimw "github.com/ShatskikhS/NotifyMe/internal/api/middleware"
	"github.com/ShatskikhS/NotifyMe/internal/queue"
	"github.com/ShatskikhS/NotifyMe/internal/ratelimiter"
	"github.com/ShatskikhS/NotifyMe/internal/service"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Service  *service.NotificationService
	Queue    *queue.PriorityQueue
	Gatherer prometheus.Gatherer
	Limiter  *ratelimiter.RequestLimiter // nil disables the API rate limit
	Debug    bool
	Logger   *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(d.Logger))

	// --- handler instances ---
	nh := handler.NewNotificationHandler(d.Service, d.Debug, d.Logger)
	mh := handler.NewMetricsHandler(d.Queue, d.Service.Count)
	hh := handler.NewHealthHandler()

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// --- probes, never rate limited ---
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	// --- public API ---
	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(apimw.RateLimit(d.Limiter))
		}

		r.Get("/", hh.Root)

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", nh.Create)
			r.Get("/", nh.List)
			r.Get("/{id}", nh.GetByID)
			r.Patch("/{id}", nh.Update)
			r.Delete("/{id}", nh.Cancel)
		})

		// JSON metrics snapshot
		r.Get("/api/v1/metrics", mh.GetMetrics)
	})

	return r
}
