package producer

import (
	"context"

	"raices-verdes/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Producer, error)
	Upsert(ctx context.Context, p domain.Producer) (*domain.Producer, error)
}
