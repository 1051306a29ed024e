// Command apiserver serves the canonicalization HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/smartscanon/internal/application/canonicalization"
	"github.com/turtacn/smartscanon/internal/application/rulebook"
	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/prometheus"
	apihttp "github.com/turtacn/smartscanon/internal/interfaces/http"
	"github.com/turtacn/smartscanon/internal/interfaces/http/handlers"
	"github.com/turtacn/smartscanon/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: SMARTSCANON_* environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
		EnableCaller:     cfg.Log.EnableCaller,
		EnableStacktrace: cfg.Log.EnableStacktrace,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()
	started := time.Now()
	logger.Info("starting smartscanon API server", logging.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		collector *prometheus.Collector
		metrics   *prometheus.CanonMetrics
	)
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return err
		}
		metrics = prometheus.NewCanonMetrics(collector)
		metrics.SetUptime("apiserver", started)
	}

	in, err := openInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer in.Close(logger)

	svc, err := canonicalization.NewService(cfg.Canon, canonicalization.Deps{
		Cache:   in.cache,
		Metrics: metrics,
		Logger:  logger.Named("canon"),
	})
	if err != nil {
		return err
	}
	rules := rulebook.NewService(rulebook.Deps{
		Canon:   svc,
		Repo:    in.rules,
		Locks:   in.lockFactory(logger.Named("lock")),
		Metrics: metrics,
		Logger:  logger.Named("rulebook"),
	})

	if configPath != "" {
		config.Watch(configPath, func(c config.CanonConfig) {
			if err := svc.UpdateConfig(c); err != nil {
				logger.Warn("canon config reload rejected", logging.Err(err))
				return
			}
			logger.Info("canon config reloaded", logging.String("default_embedding", c.DefaultEmbedding))
		}, func(err error) {
			logger.Warn("config reload failed", logging.Err(err))
		})
	}

	router := apihttp.NewRouter(apihttp.RouterConfig{
		CanonHandler:  handlers.NewCanonHandler(svc, in.jobs(), logger, cfg.Server.MaxBodySize),
		RuleHandler:   handlers.NewRuleHandler(rules, logger, cfg.Server.MaxBodySize),
		HealthHandler: handlers.NewHealthHandler(version, in.checkers()...),
		Logging:       middleware.DefaultLoggingConfig(),
		RateLimit:     middleware.DefaultRateLimitConfig(),
		Logger:        logger,
		Metrics:       metrics,
		Collector:     collector,
		MetricsPath:   cfg.Metrics.Path,
	})
	srv := apihttp.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("HTTP server shutdown failed", logging.Err(err))
		return err
	}
	return nil
}

//Personal.AI order the ending
