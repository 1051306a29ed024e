// Command worker runs queued batch canonicalization jobs from Kafka.
package main

import (
	"context"
	stdliberrors "errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/smartscanon/internal/application/canonicalization"
	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/redis"
	"github.com/turtacn/smartscanon/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/smartscanon/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var version = "dev"

const defaultHealthPort = 8081

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: SMARTSCANON_* environment only)")
	topics := flag.String("topics", "", "comma-separated request topics to consume (default: all)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port of the health and metrics endpoint (0 disables it)")
	flag.Parse()

	if err := run(*configPath, *topics, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

// requestTopics returns the topics named in filter, or every request topic.
func requestTopics(filter string) ([]string, error) {
	all := []string{kafka.TopicPatternRequested, kafka.TopicReactionRequested}
	if strings.TrimSpace(filter) == "" {
		return all, nil
	}
	var out []string
	for _, t := range strings.Split(filter, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if t != kafka.TopicPatternRequested && t != kafka.TopicReactionRequested {
			return nil, fmt.Errorf("unknown topic %q", t)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no topics in %q", filter)
	}
	return out, nil
}

func run(configPath, topicFilter string, healthPort int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka is disabled; set kafka.enabled to run the worker")
	}
	topics, err := requestTopics(topicFilter)
	if err != nil {
		return err
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
	logger.Info("starting smartscanon worker",
		logging.String("version", version),
		logging.Strings("topics", topics))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewCanonMetrics(collector)
	metrics.SetUptime("worker", started)

	var (
		cache    redis.Cache
		checkers []handlers.HealthChecker
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger.Named("redis"))
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		cache = redis.NewCache(client, logger.Named("cache"), redis.WithDefaultTTL(cfg.Canon.CacheTTL))
		checkers = append(checkers, handlers.CheckerFunc("redis", client.Ping))
	}

	svc, err := canonicalization.NewService(cfg.Canon, canonicalization.Deps{
		Cache:   cache,
		Metrics: metrics,
		Logger:  logger.Named("canon"),
	})
	if err != nil {
		return err
	}
	if configPath != "" {
		config.Watch(configPath, func(c config.CanonConfig) {
			if err := svc.UpdateConfig(c); err != nil {
				logger.Warn("canon config reload rejected", logging.Err(err))
			}
		}, func(err error) {
			logger.Warn("config reload failed", logging.Err(err))
		})
	}

	if cfg.Kafka.AutoCreateTopics {
		tm, err := kafka.NewTopicManager(ctx, cfg.Kafka.Brokers, logger.Named("kafka"))
		if err != nil {
			return err
		}
		err = tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg.Kafka.NumPartitions))
		_ = tm.Close()
		if err != nil {
			return err
		}
	}

	producer, err := kafka.NewProducer(cfg.Kafka, logger.Named("producer"))
	if err != nil {
		return err
	}
	defer producer.Close()

	consumer, err := kafka.NewConsumer(cfg.Kafka, topics, producer, logger.Named("consumer"))
	if err != nil {
		return err
	}
	h := &jobHandler{svc: svc, results: producer, metrics: metrics, logger: logger.Named("jobs")}
	for _, t := range topics {
		consumer.Subscribe(t, h.Handle)
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	var healthSrv *http.Server
	if healthPort > 0 {
		r := chi.NewRouter()
		handlers.NewHealthHandler(version, checkers...).RegisterRoutes(r)
		r.Handle(cfg.Metrics.Path, collector.Handler())
		healthSrv = &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(healthPort)),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := healthSrv.ListenAndServe(); err != nil && !stdliberrors.Is(err, http.ErrServerClosed) {
				logger.Error("health server failed", logging.Err(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down worker")

	if err := consumer.Close(); err != nil {
		logger.Warn("consumer close failed", logging.Err(err))
	}
	if healthSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthSrv.Shutdown(shutdownCtx)
	}
	stats := consumer.Stats()
	logger.Info("worker stopped",
		logging.Int64("processed", stats.Processed),
		logging.Int64("dead_lettered", stats.DeadLettered))
	return nil
}

//Personal.AI order the ending
