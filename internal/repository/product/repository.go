package product

import (
	"context"

	"raices-verdes/internal/domain"
)

// Repository reads and writes catalog products.
type Repository interface {
	ListPage(ctx context.Context, filter domain.ProductFilter, offset, limit int) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListByProducer(ctx context.Context, producerID string) ([]domain.Product, error)
	ListCommunities(ctx context.Context) ([]string, error)
	GetProducerID(ctx context.Context, productID string) (string, error)
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)

	// Create, UpdateOwned and DeleteOwned back the producer's own product
	// management. The owned variants only touch rows of p.ProducerID and
	// return the clients holding the product in their carts.
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpdateOwned(ctx context.Context, p domain.Product) (*domain.Product, []string, error)
	DeleteOwned(ctx context.Context, producerID, productID string) ([]string, error)
}
