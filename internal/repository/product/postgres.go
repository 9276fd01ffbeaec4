package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"raices-verdes/internal/db"
	"raices-verdes/internal/domain"
)

const productColumns = `id::text, producer_id::text, name, price, community, image_url, stock, description, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	opts   db.TxOptions
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zerolog.Logger) Repository {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "product_repo").Logger()
	}
	return &postgresRepo{pool: pool, opts: db.DefaultTxOptions(), logger: l}
}

// ListPage returns products newest first. The filter becomes a parameterised
// WHERE clause; offset and limit are applied after ordering.
func (r *postgresRepo) ListPage(ctx context.Context, filter domain.ProductFilter, offset, limit int) ([]domain.Product, error) {
	where, args := filterClause(filter)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`
SELECT %s
FROM products
%s
ORDER BY created_at DESC, id DESC
LIMIT $%d OFFSET $%d
`, productColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("list page")
		return nil, err
	}
	result, err := scanProducts(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("list page rows")
		return nil, err
	}
	r.logger.Debug().Int("offset", offset).Int("limit", limit).Int("count", len(result)).Msg("list page")
	return result, nil
}

func filterClause(f domain.ProductFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if c := strings.TrimSpace(f.Community); c != "" {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf("community = $%d", len(args)))
	}
	if f.PriceMin != nil {
		args = append(args, *f.PriceMin)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.PriceMax != nil {
		args = append(args, *f.PriceMax)
		conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		err = db.TranslateError(err)
		if err != domain.ErrNotFound {
			r.logger.Error().Err(err).Str("product_id", id).Msg("get")
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) ListByProducer(ctx context.Context, producerID string) ([]domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE producer_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, q, producerID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return scanProducts(rows)
}

func (r *postgresRepo) ListCommunities(ctx context.Context) ([]string, error) {
	const q = `
SELECT DISTINCT community
FROM products
WHERE community <> ''
ORDER BY community ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) GetProducerID(ctx context.Context, productID string) (string, error) {
	var producerID string
	err := r.pool.QueryRow(ctx, `SELECT producer_id::text FROM products WHERE id = $1`, productID).Scan(&producerID)
	if err != nil {
		return "", db.TranslateError(err)
	}
	return producerID, nil
}

// Upsert inserts a product or updates the one with the same (producer, name).
func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, producer_id, name, price, community, image_url, stock, description)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (producer_id, name) DO UPDATE SET
    price = EXCLUDED.price,
    community = EXCLUDED.community,
    image_url = EXCLUDED.image_url,
    stock = EXCLUDED.stock,
    description = EXCLUDED.description
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.ID,
		p.ProducerID,
		p.Name,
		p.Price,
		p.Community,
		p.ImageURL,
		p.Stock,
		p.Description,
	))
	if err != nil {
		r.logger.Error().Err(err).Str("producer_id", p.ProducerID).Str("name", p.Name).Msg("upsert")
		return nil, db.TranslateError(err)
	}
	r.logger.Debug().Str("product_id", out.ID).Msg("upserted")
	return out, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (producer_id, name, price, community, image_url, stock, description)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productColumns
	out, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.ProducerID,
		p.Name,
		p.Price,
		p.Community,
		p.ImageURL,
		p.Stock,
		p.Description,
	))
	if err != nil {
		err = db.TranslateError(err)
		if err != domain.ErrAlreadyExists {
			r.logger.Error().Err(err).Str("producer_id", p.ProducerID).Msg("create")
		}
		return nil, err
	}
	r.logger.Info().Str("product_id", out.ID).Str("producer_id", out.ProducerID).Msg("created")
	return out, nil
}

func (r *postgresRepo) UpdateOwned(ctx context.Context, p domain.Product) (*domain.Product, []string, error) {
	const q = `
UPDATE products SET
    name = $3,
    price = $4,
    community = $5,
    image_url = $6,
    stock = $7,
    description = $8
WHERE id = $1 AND producer_id = $2
RETURNING ` + productColumns

	var (
		out     *domain.Product
		holders []string
	)
	err := db.WithTransaction(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		var err error
		out, err = scanProduct(tx.QueryRow(ctx, q,
			p.ID,
			p.ProducerID,
			p.Name,
			p.Price,
			p.Community,
			p.ImageURL,
			p.Stock,
			p.Description,
		))
		if err != nil {
			return db.TranslateError(err)
		}
		holders, err = cartHolders(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info().Str("product_id", out.ID).Int("carts", len(holders)).Msg("updated")
	return out, holders, nil
}

func (r *postgresRepo) DeleteOwned(ctx context.Context, producerID, productID string) ([]string, error) {
	var holders []string
	err := db.WithTransaction(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		var err error
		// read before the cascade removes the cart lines
		if holders, err = cartHolders(ctx, tx, productID); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1 AND producer_id = $2`, productID, producerID)
		if err != nil {
			return db.TranslateError(err)
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info().Str("product_id", productID).Int("carts", len(holders)).Msg("deleted")
	return holders, nil
}

func cartHolders(ctx context.Context, tx pgx.Tx, productID string) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT DISTINCT client_id::text FROM cart_lines WHERE product_id = $1`, productID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.ProducerID, &p.Name, &p.Price, &p.Community, &p.ImageURL, &p.Stock, &p.Description, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
