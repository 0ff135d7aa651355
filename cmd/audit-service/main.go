package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/restaurant-pos/internal/audit/application"
	auditkafka "github.com/dmehra2102/restaurant-pos/internal/audit/infrastructure/kafka"
	auditpg "github.com/dmehra2102/restaurant-pos/internal/audit/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/idempotency"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/pgschema"
	"github.com/dmehra2102/restaurant-pos/pkg/shutdown"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "audit-service", cfg.OTelEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pgschema.Apply(ctx, pool); err != nil {
		log.Error("schema apply failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, 24*time.Hour)

	svc := application.NewService(auditpg.NewRepository(log, pool))
	consumer := auditkafka.NewConsumer(log, cfg.KafkaBrokers, cfg.AuditTopic, cfg.AuditGroup, svc, idem)

	log.Info("audit-service consuming", "topic", cfg.AuditTopic, "group", cfg.AuditGroup)
	if err := consumer.Run(ctx); err != nil {
		log.Error("consumer stopped", "err", err)
		cancel()
	}
	log.Info("audit-service shutdown complete")
}
