package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product held in a client's cart, joined with the product
// fields the cart view needs.
type CartLine struct {
	ID        string          `json:"id"`
	ClientID  string          `json:"clientId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ProductSnapshot is the product state as read together with the cart line.
type ProductSnapshot struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Stock    int             `json:"stock"`
}

// Subtotal returns quantity * unit price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartTotal derives the cart total from its lines. It is never stored.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
