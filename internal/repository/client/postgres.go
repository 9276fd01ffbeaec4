package client

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"raices-verdes/internal/db"
	"raices-verdes/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const clientColumns = `id::text, name, email, phone, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return c, nil
}

func (r *postgresRepo) Ensure(ctx context.Context, c domain.Client) (*domain.Client, error) {
	if _, err := r.pool.Exec(ctx, `
INSERT INTO clients (id, name, email, phone)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING
`, c.ID, c.Name, c.Email, c.Phone); err != nil {
		return nil, db.TranslateError(err)
	}
	return r.GetByID(ctx, c.ID)
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var c domain.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
