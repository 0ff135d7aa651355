package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/order/application"
	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

const selectOrder = `SELECT id, order_number, type, status, COALESCE(table_id, ''), tax_rate::text, subtotal::text, tax::text,
	tip::text, discount::text, total::text, void_reason, version, created_at, updated_at, paid_at FROM orders`

const selectItems = `SELECT order_id, id, menu_item_id, name, name_chinese, price::text, quantity, status, notes, sent_at
	FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) Create(ctx context.Context, o domain.Order) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	o.Version = 1
	_, err = tx.Exec(ctx, `INSERT INTO orders (id, order_number, type, status, table_id, tax_rate, subtotal, tax, tip, discount,
			total, void_reason, version, created_at, updated_at, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8::numeric,$9::numeric,$10::numeric,$11::numeric,$12,$13,$14,$15,$16)`,
		o.ID, o.OrderNumber, string(o.Type), string(o.Status), nullable(o.TableID), o.TaxRate.String(), o.Subtotal.String(),
		o.Tax.String(), o.Tip.String(), o.Discount.String(), o.Total.String(), o.VoidReason, o.Version, o.CreatedAt, o.UpdatedAt, o.PaidAt)
	if err != nil {
		return err
	}
	if err := writeItems(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (domain.Order, error) {
	return load(ctx, s.pool, id, "")
}

func (s *Store) List(ctx context.Context, f application.ListFilter) ([]domain.Order, error) {
	query := selectOrder + ` WHERE ($1 = false OR status NOT IN ('paid', 'voided')) AND ($2 = '' OR table_id = $2) ORDER BY order_number DESC`
	args := []any{f.ActiveOnly, f.TableID}
	if f.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) { return scanOrder(row) })
	if err != nil {
		return nil, err
	}
	if err := attachItems(ctx, s.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Update locks the order row for the whole read-modify-write.
func (s *Store) Update(ctx context.Context, id string, fn application.MutateFunc) (domain.Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	o, err := load(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return domain.Order{}, err
	}
	if err := fn(&o); err != nil {
		return domain.Order{}, err
	}
	o.Version++

	_, err = tx.Exec(ctx, `UPDATE orders SET status=$2, table_id=$3, tax_rate=$4::numeric, subtotal=$5::numeric, tax=$6::numeric,
			tip=$7::numeric, discount=$8::numeric, total=$9::numeric, void_reason=$10, version=$11, updated_at=$12, paid_at=$13
		WHERE id=$1`,
		o.ID, string(o.Status), nullable(o.TableID), o.TaxRate.String(), o.Subtotal.String(), o.Tax.String(), o.Tip.String(),
		o.Discount.String(), o.Total.String(), o.VoidReason, o.Version, o.UpdatedAt, o.PaidAt)
	if err != nil {
		return domain.Order{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return domain.Order{}, err
	}
	if err := writeItems(ctx, tx, o); err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func load(ctx context.Context, q querier, id, lock string) (domain.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, selectOrder+` WHERE id=$1`+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return domain.Order{}, err
	}
	orders := []domain.Order{o}
	if err := attachItems(ctx, q, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func attachItems(ctx context.Context, q querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	idx := make(map[string]int, len(orders))
	ids := make([]string, len(orders))
	for i := range orders {
		orders[i].Items = []domain.OrderItem{}
		idx[orders[i].ID] = i
		ids[i] = orders[i].ID
	}

	rows, err := q.Query(ctx, selectItems, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID, price, status string
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.ID, &it.MenuItemID, &it.Name, &it.NameChinese, &price, &it.Quantity, &status, &it.Notes, &it.SentAt); err != nil {
			return err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return err
		}
		it.Status = domain.ItemStatus(status)
		i := idx[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func writeItems(ctx context.Context, tx pgx.Tx, o domain.Order) error {
	if len(o.Items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for pos, it := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, id, position, menu_item_id, name, name_chinese, price, quantity, status, notes, sent_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8,$9,$10,$11)`,
			o.ID, it.ID, pos, it.MenuItemID, it.Name, it.NameChinese, it.Price.String(), it.Quantity, string(it.Status), it.Notes, it.SentAt)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var typ, status string
	var money [6]string
	var paidAt *time.Time
	err := row.Scan(&o.ID, &o.OrderNumber, &typ, &status, &o.TableID, &money[0], &money[1], &money[2], &money[3], &money[4], &money[5],
		&o.VoidReason, &o.Version, &o.CreatedAt, &o.UpdatedAt, &paidAt)
	if err != nil {
		return domain.Order{}, err
	}
	dst := []*decimal.Decimal{&o.TaxRate, &o.Subtotal, &o.Tax, &o.Tip, &o.Discount, &o.Total}
	for i, s := range money {
		if *dst[i], err = decimal.NewFromString(s); err != nil {
			return domain.Order{}, err
		}
	}
	o.Type = domain.OrderType(typ)
	o.Status = domain.OrderStatus(status)
	o.PaidAt = paidAt
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Sequence draws order numbers from order_number_seq.
type Sequence struct {
	pool *pgxpool.Pool
}

func NewSequence(pool *pgxpool.Pool) *Sequence {
	return &Sequence{pool: pool}
}

func (s *Sequence) Next(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n)
	return n, err
}
