package postgres

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Insert(ctx context.Context, f domain.Fact) error {
	meta, err := json.Marshal(f.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING`,
		f.ID, f.ActorID, string(f.Action), f.EntityType, f.EntityID, meta, f.Timestamp)
	return err
}

func (r *Repository) Latest(ctx context.Context, limit int) ([]domain.Fact, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, actor_id, action, entity_type, entity_id, metadata, created_at
		FROM audit_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facts := make([]domain.Fact, 0, limit)
	for rows.Next() {
		var f domain.Fact
		var action string
		var meta []byte
		if err := rows.Scan(&f.ID, &f.ActorID, &action, &f.EntityType, &f.EntityID, &meta, &f.Timestamp); err != nil {
			return nil, err
		}
		f.Action = domain.Action(action)
		if err := json.Unmarshal(meta, &f.Metadata); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// OutboxSink stages facts in the outbox table; the relay ships them to Kafka.
type OutboxSink struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxSink(log *slog.Logger, pool *pgxpool.Pool) *OutboxSink {
	return &OutboxSink{log: log, pool: pool}
}

func (s *OutboxSink) Record(ctx context.Context, f domain.Fact) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	headers := map[string]string{"source": "pos-service", "actor_id": f.ActorID}
	_, err = s.pool.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		f.EntityType, f.EntityID, string(f.Action), payload, headers, tracing.Traceparent(ctx))
	return err
}
