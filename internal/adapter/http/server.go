package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/station-ridership/internal/domain"
	"github.com/couchcryptid/station-ridership/internal/pipeline"
)

// Service computes the dashboard views.
type Service interface {
	Regions(ctx context.Context) ([]string, error)
	Years() []int
	Map(ctx context.Context, q pipeline.Query) (pipeline.MapView, error)
	Top(ctx context.Context, q pipeline.Query) (pipeline.TopView, error)
	Trend(ctx context.Context, q pipeline.Query) ([]domain.TrendPoint, error)
	Covid(ctx context.Context, q pipeline.Query) (domain.CovidView, error)
	Compute(ctx context.Context, q pipeline.Query) (*pipeline.View, error)
}

// Server exposes the dashboard API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	svc        Service
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes, /healthz, /readyz,
// and /metrics. allowedOrigins configures CORS for the API.
func NewServer(addr string, svc Service, ready sharedobs.ReadinessChecker, allowedOrigins []string, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}))
		r.Get("/regions", s.handleRegions)
		r.Get("/years", s.handleYears)
		r.Get("/map", s.handleMap)
		r.Get("/top", s.handleTop)
		r.Get("/trend", s.handleTrend)
		r.Get("/covid", s.handleCovid)
		r.Get("/dashboard", s.handleDashboard)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
