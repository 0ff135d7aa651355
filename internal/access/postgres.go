package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// PostgresDirectory reads staff from the users table.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) User(ctx context.Context, id string) (User, error) {
	var u User
	var role string
	err := d.pool.QueryRow(ctx, `SELECT id, full_name, role, is_active FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.FullName, &role, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func (d *PostgresDirectory) Upsert(ctx context.Context, u User) error {
	_, err := d.pool.Exec(ctx, `INSERT INTO users (id, full_name, role, is_active) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET full_name=$2, role=$3, is_active=$4`,
		u.ID, u.FullName, string(u.Role), u.IsActive)
	return err
}
