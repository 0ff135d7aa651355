package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

type Ingester interface {
	Ingest(ctx context.Context, f domain.Fact) error
}

type Deduper interface {
	MessageKey(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	minRetryDelay = 200 * time.Millisecond
	maxRetryDelay = 10 * time.Second
)

type Consumer struct {
	log    *slog.Logger
	reader messageReader
	svc    Ingester
	idem   Deduper
	tracer trace.Tracer

	minDelay, maxDelay time.Duration
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc Ingester, idem Deduper) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:      log,
		reader:   r,
		svc:      svc,
		idem:     idem,
		tracer:   otel.Tracer("audit-consumer"),
		minDelay: minRetryDelay,
		maxDelay: maxRetryDelay,
	}
}

// Run consumes facts in offset order. A record that cannot be stored is
// retried until it succeeds, so a later commit never skips it.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := c.process(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	delay := c.minDelay
	for retry := false; ; retry = true {
		err := c.handle(ctx, msg, retry)
		if err == nil {
			return nil
		}
		c.log.Warn("audit message retry", "partition", msg.Partition, "offset", msg.Offset, "delay", delay, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, c.maxDelay)
	}
}

// handle returns an error only when msg must be tried again. Retries skip
// the duplicate check: the claim may still be held from the failed attempt,
// and storing a fact twice is a no-op.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message, retry bool) error {
	key := c.idem.MessageKey(msg.Topic, msg.Partition, msg.Offset)
	if !retry {
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			return fmt.Errorf("idempotency check %s: %w", key, err)
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			return c.commit(ctx, msg)
		}
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeAuditFact")
	defer span.End()

	var fact domain.Fact
	if err := json.Unmarshal(msg.Value, &fact); err != nil {
		c.log.Error("unmarshal failed, dropping record", "key", key, "err", err)
		return c.commit(ctx, msg)
	}

	if err := c.svc.Ingest(msgCtx, fact); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			c.log.Error("invalid audit fact, dropping record", "key", key, "err", err)
			return c.commit(ctx, msg)
		}
		c.log.Error("audit ingest failed", "fact_id", fact.ID, "type", tracing.HeaderValue(msg.Headers, "event_type"), "err", err)
		if rerr := c.idem.Release(ctx, key); rerr != nil {
			c.log.Warn("idempotency release failed", "key", key, "err", rerr)
		}
		return fmt.Errorf("ingest %s: %w", fact.ID, err)
	}
	c.log.Debug("audit fact stored", "fact_id", fact.ID, "action", fact.Action)
	return c.commit(ctx, msg)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}
