package article

import (
	"context"

	"raices-verdes/internal/domain"
)

// Repository reads traditional-medicine articles and records reactions.
// viewerID selects whose own reaction is reported; empty means nobody's.
type Repository interface {
	List(ctx context.Context, filter domain.ArticleFilter, viewerID string) ([]domain.Article, error)
	Get(ctx context.Context, id, viewerID string) (*domain.Article, error)
	React(ctx context.Context, articleID, identityID string, reaction domain.Reaction) (*domain.Article, error)
	ListCategories(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, a domain.Article) (*domain.Article, error)
}
