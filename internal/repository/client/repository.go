package client

import (
	"context"

	"raices-verdes/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	// Ensure creates the client profile when it does not exist yet and
	// returns the stored row either way.
	Ensure(ctx context.Context, c domain.Client) (*domain.Client, error)
}
