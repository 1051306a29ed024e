// Package http assembles the API server: the chi route tree, its middleware
// chain and the http.Server lifecycle.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/smartscanon/internal/interfaces/http/handlers"
	"github.com/turtacn/smartscanon/internal/interfaces/http/middleware"
	"github.com/turtacn/smartscanon/pkg/errors"
	"github.com/turtacn/smartscanon/pkg/types/common"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	CanonHandler  *handlers.CanonHandler
	RuleHandler   *handlers.RuleHandler
	HealthHandler *handlers.HealthHandler

	Logging   middleware.LoggingConfig
	RateLimit middleware.RateLimitConfig

	Logger    logging.Logger
	Metrics   *prometheus.CanonMetrics
	Collector *prometheus.Collector
	// MetricsPath defaults to /metrics.
	MetricsPath string
}

// NewRouter constructs the complete HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogging(cfg.Logger.Named("http"), cfg.Logging))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.RateLimit(cfg.RateLimit))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errors.ErrCodeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errors.ErrCodeBadRequest)
	})

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.Collector != nil {
		r.Handle(cfg.MetricsPath, cfg.Collector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.CanonHandler != nil {
			cfg.CanonHandler.RegisterRoutes(api)
		}
		if cfg.RuleHandler != nil {
			cfg.RuleHandler.RegisterRoutes(api)
		}
	})

	return r
}

func writeError(w http.ResponseWriter, r *http.Request, code errors.ErrorCode) {
	resp := common.NewErrorResponse(string(code), errors.DefaultMessageForCode(code), r.Method+" "+r.URL.Path)
	resp.RequestID = chimw.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.HTTPStatusForCode(code))
	_ = json.NewEncoder(w).Encode(resp)
}

//Personal.AI order the ending
