package cart

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

const lineSelect = `
SELECT cl.id::text, cl.client_id::text, cl.product_id::text, cl.quantity, cl.created_at,
       p.name, p.price, p.image_url, p.stock
FROM cart_lines cl
JOIN products p ON p.id = cl.product_id
`

func (r *postgresRepo) ListByClient(ctx context.Context, clientID string) ([]domain.CartLine, error) {
	rows, err := r.pool.Query(ctx, lineSelect+`
WHERE cl.client_id = $1
ORDER BY cl.created_at ASC, cl.id ASC
`, clientID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// AddOne inserts the line with quantity 1 or increments the existing one in a
// single statement, so concurrent adds never lose an increment or split the
// line. The bool reports whether a new row was created.
func (r *postgresRepo) AddOne(ctx context.Context, clientID, productID string) (*domain.CartLine, bool, error) {
	const q = `
INSERT INTO cart_lines (client_id, product_id, quantity)
VALUES ($1, $2, 1)
ON CONFLICT (client_id, product_id) DO UPDATE
SET quantity = cart_lines.quantity + 1,
    updated_at = now()
RETURNING id::text, (xmax = 0) AS inserted
`
	var (
		lineID   string
		inserted bool
	)
	if err := r.pool.QueryRow(ctx, q, clientID, productID).Scan(&lineID, &inserted); err != nil {
		return nil, false, db.TranslateError(err)
	}
	line, err := r.get(ctx, clientID, lineID)
	if err != nil {
		return nil, false, err
	}
	return line, inserted, nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, clientID, lineID string, quantity int) (*domain.CartLine, error) {
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1, updated_at = now()
WHERE id = $2 AND client_id = $3
`, quantity, lineID, clientID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.get(ctx, clientID, lineID)
}

func (r *postgresRepo) Remove(ctx context.Context, clientID, lineID string) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM cart_lines
WHERE id = $1 AND client_id = $2
`, lineID, clientID)
	if err != nil {
		return db.TranslateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) get(ctx context.Context, clientID, lineID string) (*domain.CartLine, error) {
	line, err := scanLine(r.pool.QueryRow(ctx, lineSelect+`
WHERE cl.id = $1 AND cl.client_id = $2
`, lineID, clientID))
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return line, nil
}

func scanLine(row pgx.Row) (*domain.CartLine, error) {
	var line domain.CartLine
	if err := row.Scan(
		&line.ID,
		&line.ClientID,
		&line.ProductID,
		&line.Quantity,
		&line.CreatedAt,
		&line.Product.Name,
		&line.Product.Price,
		&line.Product.ImageURL,
		&line.Product.Stock,
	); err != nil {
		return nil, err
	}
	return &line, nil
}
