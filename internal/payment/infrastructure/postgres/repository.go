package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/payment/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const selectPayment = `SELECT id, order_id, method, amount::text, tip::text, status, reference, card_last4,
	cash_tendered::text, change_due::text, processed_by, refund_reason, created_at, updated_at FROM payments`

func (r *Repository) Create(ctx context.Context, p domain.Payment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payments (id, order_id, method, amount, tip, status, reference, card_last4,
			cash_tendered, change_due, processed_by, refund_reason, created_at, updated_at)
		VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6,$7,$8,$9::numeric,$10::numeric,$11,$12,$13,$14)`,
		p.ID, p.OrderID, string(p.Method), p.Amount.String(), p.Tip.String(), string(p.Status), p.Reference, p.CardLast4,
		optional(p.CashTendered), optional(p.ChangeDue), p.ProcessedBy, p.RefundReason, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, selectPayment+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, fmt.Errorf("%w: payment %s", apperr.ErrNotFound, id)
	}
	return p, err
}

func (r *Repository) Update(ctx context.Context, p domain.Payment) error {
	ct, err := r.pool.Exec(ctx, `UPDATE payments SET status=$2, refund_reason=$3, updated_at=$4 WHERE id=$1`,
		p.ID, string(p.Status), p.RefundReason, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %s", apperr.ErrNotFound, p.ID)
	}
	return nil
}

func (r *Repository) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, selectPayment+` WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Payment, error) { return scanPayment(row) })
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	var method, status, amount, tip string
	var tendered, change *string
	err := row.Scan(&p.ID, &p.OrderID, &method, &amount, &tip, &status, &p.Reference, &p.CardLast4,
		&tendered, &change, &p.ProcessedBy, &p.RefundReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Payment{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Payment{}, err
	}
	if p.Tip, err = decimal.NewFromString(tip); err != nil {
		return domain.Payment{}, err
	}
	if p.CashTendered, err = parseOptional(tendered); err != nil {
		return domain.Payment{}, err
	}
	if p.ChangeDue, err = parseOptional(change); err != nil {
		return domain.Payment{}, err
	}
	p.Method = domain.Method(method)
	p.Status = domain.Status(status)
	return p, nil
}

func optional(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseOptional(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
