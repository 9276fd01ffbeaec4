package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// ParsePaymentMethod accepts "card" or "cash", case-insensitively.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentCard:
		return PaymentCard, nil
	case PaymentCash:
		return PaymentCash, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("unsupported payment method %q", raw)}
}

// Payment is the immutable record written by a successful checkout.
type Payment struct {
	ID            string          `json:"id"`
	ClientID      string          `json:"clientId"`
	Total         decimal.Decimal `json:"total"`
	Method        PaymentMethod   `json:"method"`
	InvoiceNumber int64           `json:"invoiceNumber"`
	CreatedAt     time.Time       `json:"createdAt"`
	Details       []PaymentDetail `json:"details,omitempty"`
}

// PaymentDetail captures one purchased line with its price at purchase time.
type PaymentDetail struct {
	PaymentID   string          `json:"paymentId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (d PaymentDetail) Subtotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}
