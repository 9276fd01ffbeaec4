package comment

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

const commentColumns = `id::text, product_id::text, author_id::text, content, rating, created_at`

// ListByProduct returns the newest comments first.
func (r *postgresRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Comment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+commentColumns+`
FROM comments
WHERE product_id = $1
ORDER BY created_at DESC, id DESC
`, productID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	defer rows.Close()

	out := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Comment) (*domain.Comment, error) {
	out, err := scanComment(r.pool.QueryRow(ctx, `
INSERT INTO comments (product_id, author_id, content, rating)
VALUES ($1, $2, $3, $4)
RETURNING `+commentColumns, c.ProductID, c.AuthorID, c.Content, c.Rating))
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return out, nil
}

func (r *postgresRepo) RatingByProducer(ctx context.Context, producerID string) (domain.RatingSummary, error) {
	var out domain.RatingSummary
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(AVG(c.rating), 0)::float8, COUNT(*)
FROM comments c
JOIN products p ON p.id = c.product_id
WHERE p.producer_id = $1
`, producerID).Scan(&out.Average, &out.Count)
	if err != nil {
		return domain.RatingSummary{}, db.TranslateError(err)
	}
	return out, nil
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.ProductID, &c.AuthorID, &c.Content, &c.Rating, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
