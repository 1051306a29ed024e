package main

import (
	"context"
	"fmt"

	"github.com/turtacn/smartscanon/internal/application/rulebook"
	"github.com/turtacn/smartscanon/internal/config"
	"github.com/turtacn/smartscanon/internal/domain/rule"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/postgres"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/smartscanon/internal/infrastructure/database/redis"
	"github.com/turtacn/smartscanon/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/internal/interfaces/http/handlers"
)

// infra holds the optional backends enabled in the configuration. Every
// field is nil when its backend is disabled.
type infra struct {
	redis    *redis.Client
	cache    redis.Cache
	postgres *postgres.Connection
	rules    rule.Repository
	producer *kafka.Producer
}

func openInfra(ctx context.Context, cfg *config.Config, logger logging.Logger) (*infra, error) {
	in := &infra{}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger.Named("redis"))
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		in.redis = client
		in.cache = redis.NewCache(client, logger.Named("cache"), redis.WithDefaultTTL(cfg.Canon.CacheTTL))
	}

	if cfg.Database.Enabled {
		conn, err := postgres.NewConnection(ctx, cfg.Database, logger.Named("postgres"))
		if err != nil {
			in.Close(logger)
			return nil, fmt.Errorf("postgres: %w", err)
		}
		in.postgres = conn
		if cfg.Database.AutoMigrate {
			if err := conn.RunMigrations(); err != nil {
				in.Close(logger)
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		in.rules = repositories.NewPostgresRuleRepo(conn, logger.Named("rules"))
	}

	if cfg.Kafka.Enabled {
		if cfg.Kafka.AutoCreateTopics {
			tm, err := kafka.NewTopicManager(ctx, cfg.Kafka.Brokers, logger.Named("kafka"))
			if err != nil {
				in.Close(logger)
				return nil, fmt.Errorf("kafka: %w", err)
			}
			err = tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg.Kafka.NumPartitions))
			_ = tm.Close()
			if err != nil {
				in.Close(logger)
				return nil, fmt.Errorf("kafka topics: %w", err)
			}
		}
		p, err := kafka.NewProducer(cfg.Kafka, logger.Named("kafka"))
		if err != nil {
			in.Close(logger)
			return nil, fmt.Errorf("kafka: %w", err)
		}
		in.producer = p
	}
	return in, nil
}

// lockFactory serializes rule imports per library through redis, or returns
// nil when redis is disabled.
func (in *infra) lockFactory(logger logging.Logger) rulebook.LockFactory {
	if in.redis == nil {
		return nil
	}
	return func(library string) redis.Locker {
		return redis.NewMutex(in.redis, "import:"+library, logger, redis.WithWatchdog())
	}
}

// jobs returns the async batch queue, or nil when kafka is disabled. The
// explicit nil keeps the interface comparable to nil in the handler.
func (in *infra) jobs() handlers.JobEnqueuer {
	if in.producer == nil {
		return nil
	}
	return in.producer
}

func (in *infra) checkers() []handlers.HealthChecker {
	var out []handlers.HealthChecker
	if in.redis != nil {
		out = append(out, handlers.CheckerFunc("redis", in.redis.Ping))
	}
	if in.postgres != nil {
		out = append(out, handlers.CheckerFunc("postgres", in.postgres.HealthCheck))
	}
	return out
}

// Close releases every open backend.
func (in *infra) Close(logger logging.Logger) {
	if in.producer != nil {
		if err := in.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if in.postgres != nil {
		if err := in.postgres.Close(); err != nil {
			logger.Warn("postgres close failed", logging.Err(err))
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			logger.Warn("redis close failed", logging.Err(err))
		}
	}
}

//Personal.AI order the ending
