package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/restaurant-pos/internal/access"
	auditapp "github.com/dmehra2102/restaurant-pos/internal/audit/application"
	auditkafka "github.com/dmehra2102/restaurant-pos/internal/audit/infrastructure/kafka"
	auditpg "github.com/dmehra2102/restaurant-pos/internal/audit/infrastructure/postgres"
	menupg "github.com/dmehra2102/restaurant-pos/internal/menu/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-pos/internal/order/application"
	ordergrpc "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/grpc"
	orderhttp "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/http"
	orderpg "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/postgres"
	orderrabbit "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/rabbitmq"
	orderredis "github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/redis"
	paymentapp "github.com/dmehra2102/restaurant-pos/internal/payment/application"
	paymentpg "github.com/dmehra2102/restaurant-pos/internal/payment/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-pos/pkg/config"
	"github.com/dmehra2102/restaurant-pos/pkg/idempotency"
	"github.com/dmehra2102/restaurant-pos/pkg/logging"
	"github.com/dmehra2102/restaurant-pos/pkg/outbox"
	"github.com/dmehra2102/restaurant-pos/pkg/pgschema"
	"github.com/dmehra2102/restaurant-pos/pkg/shutdown"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

// first order number handed out is orderNumberStart+1
const orderNumberStart = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "pos-service", cfg.OTelEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Postgres Setup
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

	var seq application.Sequence = orderpg.NewSequence(pool)
	if cfg.SequenceBackend == "redis" {
		seq, err = orderredis.NewSequence(ctx, rdb, orderredis.DefaultSequenceKey, orderNumberStart)
		if err != nil {
			log.Error("redis sequence init failed", "err", err)
			os.Exit(1)
		}
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Error("worker stopped with error", "worker", name, "err", err)
			}
		}()
	}

	// Audit facts go to the outbox; the relay ships them to Kafka for audit-service.
	writer := auditkafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()
	relay := outbox.NewRelay(log, auditpg.NewOutboxStore(log, pool), outbox.NewDispatcher(log, writer, cfg.AuditTopic), "pos-service-relay")
	run("outbox-relay", relay.Run)

	// The sink outlives the signal context: requests drained during shutdown
	// still record facts, so it stops only after everything else has.
	sink := auditapp.NewAsyncSink(log, auditpg.NewOutboxSink(log, pool), 1024)
	sinkCtx, stopSink := context.WithCancel(context.Background())
	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		sink.Run(sinkCtx)
	}()

	catalog := menupg.NewCatalog(log, pool)
	ledger := application.NewLedger(log, orderpg.NewStore(log, pool), catalog, seq, sink, cfg.TaxRate)

	// Kitchen integration is optional; orders still work without a broker.
	broker, err := orderrabbit.Dial(cfg.AMQPURL, cfg.KitchenStatusQueue, 10)
	if err != nil {
		log.Warn("rabbitmq unavailable, kitchen tickets disabled", "err", err)
	} else {
		defer func() { _ = broker.Close() }()
		ledger.WithTicketPublisher(orderrabbit.NewTicketPublisher(log, broker.Channel()))
		consumer := orderrabbit.NewStatusConsumer(log, broker.Channel(), cfg.KitchenStatusQueue, ledger)
		run("kitchen-status", consumer.Run)
	}

	payments := paymentapp.NewService(log, paymentpg.NewRepository(log, pool), ledger, paymentapp.TerminalAuthorizer{}, sink)
	gate := access.NewGate(log, access.NewPostgresDirectory(pool))
	auditLog := auditapp.NewService(auditpg.NewRepository(log, pool))
	handler := orderhttp.NewHandler(log, ledger, payments, catalog, auditLog, gate, idem)

	// HTTP server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	// gRPC health
	health := ordergrpc.NewHealth(log, map[string]ordergrpc.Probe{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	grpcSrv := health.NewServer()
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", "err", err)
		os.Exit(1)
	}
	go func() {
		log.Info("grpc listening", "addr", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc server error", "err", err)
		}
	}()
	run("health", func(ctx context.Context) error { health.Watch(ctx, 10*time.Second); return nil })

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	grpcSrv.GracefulStop()
	wg.Wait()
	stopSink()
	<-sinkDone
	log.Info("pos-service shutdown complete")
}
