// Package api exposes the diff engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical/pdf-diff/internal/observability"
)

// Config holds router settings.
type Config struct {
	RequestTimeout    time.Duration
	MaxBodyBytes      int64
	Strategy          string
	ExemptBoilerplate bool
}

// DefaultConfig returns default router settings.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:    60 * time.Second,
		MaxBodyBytes:      32 << 20,
		Strategy:          "ratcliff",
		ExemptBoilerplate: true,
	}
}

// NewRouter creates the API router. runs may be nil, in which case the
// history routes are not mounted and diffs are not recorded.
func NewRouter(logger *observability.Logger, cfg Config, runs RunStore) http.Handler {
	if logger == nil {
		logger = observability.Nop()
	}
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"pdf-diff"}`))
	})

	diffHandler := NewDiffHandler(logger, cfg, runs)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/diff", diffHandler.Diff)

		if runs != nil {
			runHandler := NewRunHandler(logger, runs)
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", runHandler.List)
				r.Get("/{runId}", runHandler.Get)
			})
		}
	})

	return r
}
