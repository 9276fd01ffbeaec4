package article

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"raices-verdes/internal/db"
	"raices-verdes/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	opts   db.TxOptions
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zerolog.Logger) Repository {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "article_repo").Logger()
	}
	return &postgresRepo{pool: pool, opts: db.DefaultTxOptions(), logger: l}
}

// $1 is always the viewer id, NULL for anonymous readers.
const articleSelect = `
SELECT a.id::text,
       COALESCE(a.producer_id::text, ''),
       COALESCE(p.business_name, ''),
       a.title, a.category, a.content, a.image_url, a.created_at,
       COUNT(*) FILTER (WHERE r.reaction = 'like'),
       COUNT(*) FILTER (WHERE r.reaction = 'dislike'),
       COALESCE(MAX(r.reaction) FILTER (WHERE r.identity_id = $1::uuid), '')
FROM medicinal_articles a
LEFT JOIN producers p ON p.id = a.producer_id
LEFT JOIN article_reactions r ON r.article_id = a.id
`

const articleGroup = `GROUP BY a.id, p.business_name`

func viewerArg(viewerID string) interface{} {
	if viewerID == "" {
		return nil
	}
	return viewerID
}

// List returns articles newest first.
func (r *postgresRepo) List(ctx context.Context, filter domain.ArticleFilter, viewerID string) ([]domain.Article, error) {
	args := []interface{}{viewerArg(viewerID)}
	var conds []string
	if c := strings.TrimSpace(filter.Category); c != "" {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf("a.category = $%d", len(args)))
	}
	if t := strings.TrimSpace(filter.Title); t != "" {
		args = append(args, "%"+likeEscaper.Replace(t)+"%")
		conds = append(conds, fmt.Sprintf("a.title ILIKE $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := r.pool.Query(ctx, articleSelect+where+"\n"+articleGroup+"\nORDER BY a.created_at DESC, a.id DESC", args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("list articles")
		return nil, db.TranslateError(err)
	}
	defer rows.Close()

	out := []domain.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *postgresRepo) Get(ctx context.Context, id, viewerID string) (*domain.Article, error) {
	return get(ctx, r.pool, id, viewerID)
}

func get(ctx context.Context, q db.Querier, id, viewerID string) (*domain.Article, error) {
	a, err := scanArticle(q.QueryRow(ctx, articleSelect+"WHERE a.id = $2\n"+articleGroup, viewerArg(viewerID), id))
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return a, nil
}

// React records identityID's reaction. Repeating the current reaction takes
// it back; the other one replaces it. Each identity holds at most one
// reaction per article.
func (r *postgresRepo) React(ctx context.Context, articleID, identityID string, reaction domain.Reaction) (*domain.Article, error) {
	var out *domain.Article
	err := db.WithRetry(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM medicinal_articles WHERE id = $1)`, articleID).Scan(&exists); err != nil {
			return db.TranslateError(err)
		}
		if !exists {
			return domain.ErrNotFound
		}

		var current string
		err := tx.QueryRow(ctx, `
SELECT reaction FROM article_reactions
WHERE article_id = $1 AND identity_id = $2
FOR UPDATE
`, articleID, identityID).Scan(&current)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			_, err = tx.Exec(ctx, `
INSERT INTO article_reactions (article_id, identity_id, reaction)
VALUES ($1, $2, $3)
ON CONFLICT (article_id, identity_id) DO UPDATE SET reaction = EXCLUDED.reaction
`, articleID, identityID, string(reaction))
		case err != nil:
			return db.TranslateError(err)
		case domain.Reaction(current) == reaction:
			_, err = tx.Exec(ctx, `DELETE FROM article_reactions WHERE article_id = $1 AND identity_id = $2`, articleID, identityID)
		default:
			_, err = tx.Exec(ctx, `
UPDATE article_reactions SET reaction = $3, created_at = now()
WHERE article_id = $1 AND identity_id = $2
`, articleID, identityID, string(reaction))
		}
		if err != nil {
			return fmt.Errorf("write reaction: %w", db.TranslateError(err))
		}

		out, err = get(ctx, tx, articleID, identityID)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error().Err(err).Str("article_id", articleID).Msg("react")
		}
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
SELECT DISTINCT category
FROM medicinal_articles
WHERE category <> ''
ORDER BY category ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert writes an article under a fixed id. The seeder uses it; articles
// are otherwise authored outside this service.
func (r *postgresRepo) Upsert(ctx context.Context, a domain.Article) (*domain.Article, error) {
	var producerID interface{}
	if a.ProducerID != "" {
		producerID = a.ProducerID
	}
	var id string
	err := r.pool.QueryRow(ctx, `
INSERT INTO medicinal_articles (id, producer_id, title, category, content, image_url)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    producer_id = EXCLUDED.producer_id,
    title = EXCLUDED.title,
    category = EXCLUDED.category,
    content = EXCLUDED.content,
    image_url = EXCLUDED.image_url
RETURNING id::text
`, a.ID, producerID, a.Title, a.Category, a.Content, a.ImageURL).Scan(&id)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return r.Get(ctx, id, "")
}

func scanArticle(row pgx.Row) (*domain.Article, error) {
	var (
		a        domain.Article
		reaction string
	)
	if err := row.Scan(&a.ID, &a.ProducerID, &a.AuthorName, &a.Title, &a.Category, &a.Content, &a.ImageURL, &a.CreatedAt,
		&a.Likes, &a.Dislikes, &reaction); err != nil {
		return nil, err
	}
	a.Reaction = domain.Reaction(reaction)
	return &a, nil
}
