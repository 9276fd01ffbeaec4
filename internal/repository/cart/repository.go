package cart

import (
	"context"

	"raices-verdes/internal/domain"
)

// Repository persists cart lines. Every method is scoped to the owning client.
type Repository interface {
	ListByClient(ctx context.Context, clientID string) ([]domain.CartLine, error)
	AddOne(ctx context.Context, clientID, productID string) (*domain.CartLine, bool, error)
	SetQuantity(ctx context.Context, clientID, lineID string, quantity int) (*domain.CartLine, error)
	Remove(ctx context.Context, clientID, lineID string) error
}
