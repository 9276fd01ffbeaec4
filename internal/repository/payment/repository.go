package payment

import (
	"context"

	"raices-verdes/internal/domain"
)

// Repository owns payments and their detail lines.
type Repository interface {
	// Checkout converts the client's cart into a payment in one transaction:
	// stock is re-checked under row locks, details snapshot each line's name
	// and unit price, stock is decremented and the cart is emptied. Either all
	// of it happens or none of it does.
	Checkout(ctx context.Context, clientID string, method domain.PaymentMethod) (*domain.Payment, error)
	// GetInvoice returns a payment with its details, only to its owner.
	GetInvoice(ctx context.Context, paymentID, clientID string) (*domain.Payment, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Payment, error)
}
