package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/menu/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

type Catalog struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewCatalog(log *slog.Logger, pool *pgxpool.Pool) *Catalog {
	return &Catalog{log: log, pool: pool}
}

const selectItem = `SELECT id, sku, name, name_chinese, description, price::text, category, tags, is_available FROM menu_items`

func (c *Catalog) Lookup(ctx context.Context, id string) (domain.Item, error) {
	it, err := scanItem(c.pool.QueryRow(ctx, selectItem+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, fmt.Errorf("%w: menu item %s", apperr.ErrNotFound, id)
	}
	return it, err
}

func (c *Catalog) List(ctx context.Context, f domain.Filter) ([]domain.Item, error) {
	rows, err := c.pool.Query(ctx, selectItem+` ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		if f.Matches(it) {
			out = append(out, it)
		}
	}
	return out, rows.Err()
}

// Upsert loads or refreshes catalog rows, used for seeding.
func (c *Catalog) Upsert(ctx context.Context, items []domain.Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO menu_items (id, sku, name, name_chinese, description, price, category, tags, is_available)
			VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9)
			ON CONFLICT (id) DO UPDATE SET sku=$2, name=$3, name_chinese=$4, description=$5, price=$6::numeric,
				category=$7, tags=$8, is_available=$9`,
			it.ID, it.SKU, it.Name, it.NameChinese, it.Description, it.Price.String(), string(it.Category), it.Tags, it.IsAvailable)
	}
	return c.pool.SendBatch(ctx, batch).Close()
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var it domain.Item
	var price, category string
	if err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.NameChinese, &it.Description, &price, &category, &it.Tags, &it.IsAvailable); err != nil {
		return domain.Item{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Item{}, err
	}
	it.Price = p
	it.Category = domain.Category(category)
	return it, nil
}
