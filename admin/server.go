package admin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/reqcache/client"
	"github.com/jonwraymond/reqcache/health"
	"github.com/jonwraymond/reqcache/observe"
	"github.com/jonwraymond/reqcache/observe/exporters"
)

// Server serves the admin API of one Runtime.
type Server struct {
	runtime *client.Runtime
	health  *health.Aggregator
	logger  observe.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHealth replaces the readiness aggregator. Storage and in-flight
// checkers are still registered on it.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) {
		if agg != nil {
			s.health = agg
		}
	}
}

// WithLogger sets the request logger. Default: the runtime logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server for rt.
func New(rt *client.Runtime, opts ...Option) *Server {
	s := &Server{
		runtime: rt,
		health:  health.NewAggregator(0),
		logger:  rt.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.health.Register(health.NewInFlightChecker(rt.InFlight(), 0))
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.liveness)
	r.Get("/readyz", s.readiness)
	r.Handle("/metrics", promhttp.HandlerFor(exporters.Prometheus, promhttp.HandlerOpts{}))

	r.Get("/config", s.getConfig)
	r.Put("/config/limit-snapshots", s.putLimit)

	r.Get("/snapshots", s.listSnapshots)
	r.Get("/inflight", s.listInFlight)

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", s.listClients)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/cache/{key}", s.invalidateKey)
			r.Post("/invalidate", s.invalidateMatching)
		})
	})
	return r
}

// syncStorageCheckers registers a checker for every adapter the runtime has
// seen. Adapters are append-only, so the index names are stable.
func (s *Server) syncStorageCheckers() {
	for i, a := range s.runtime.StorageAdapters() {
		s.health.Register(health.NewStorageChecker(fmt.Sprintf("storage.%d", i), a))
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Debug(r.Context(), "admin request",
			observe.F("http.method", r.Method),
			observe.F("http.path", r.URL.Path),
			observe.F("http.status", ww.Status()),
			observe.F("request_id", middleware.GetReqID(r.Context())),
			observe.F("duration_ms", float64(time.Since(start).Microseconds())/1000),
		)
	})
}
