package comment

import (
	"context"

	"raices-verdes/internal/domain"
)

type Repository interface {
	ListByProduct(ctx context.Context, productID string) ([]domain.Comment, error)
	Create(ctx context.Context, c domain.Comment) (*domain.Comment, error)
	// RatingByProducer aggregates the ratings on every product of producerID.
	RatingByProducer(ctx context.Context, producerID string) (domain.RatingSummary, error)
}
