package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const adminReadHeaderTimeout = 5 * time.Second

// NewAdminHandler serves liveness, Prometheus metrics from gatherer and pprof.
// These routes carry no API key, so the handler belongs on a private address.
func NewAdminHandler(gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}))
	mux.Mount("/debug", middleware.Profiler())
	return mux
}

// NewAdminServer creates the admin HTTP server listening on addr.
func NewAdminServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: adminReadHeaderTimeout,
	}
}
