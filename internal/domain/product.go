package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item owned by a producer.
type Product struct {
	ID          string          `json:"id"`
	ProducerID  string          `json:"producerId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Community   string          `json:"community,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Stock       int             `json:"stock"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ProductFilter narrows catalog listings. Zero values mean "no constraint".
type ProductFilter struct {
	Community string           `json:"community,omitempty"`
	PriceMin  *decimal.Decimal `json:"priceMin,omitempty"`
	PriceMax  *decimal.Decimal `json:"priceMax,omitempty"`
}

// Equal reports whether both filters select the same products.
func (f ProductFilter) Equal(o ProductFilter) bool {
	return f.Community == o.Community && decimalPtrEqual(f.PriceMin, o.PriceMin) && decimalPtrEqual(f.PriceMax, o.PriceMax)
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Comment is a consumer review left on a product page.
type Comment struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}
