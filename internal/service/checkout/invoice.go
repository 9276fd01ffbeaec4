package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

type Invoice struct {
	PaymentID string               `json:"paymentId"`
	Number    int64                `json:"invoiceNumber"`
	Date      time.Time            `json:"date"`
	Method    domain.PaymentMethod `json:"method"`
	Lines     []InvoiceLine        `json:"lines"`
	Total     decimal.Decimal      `json:"total"`
}

type InvoiceLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewInvoice renders a payment. The total is the stored payment total, which
// equals the sum of line subtotals for every committed checkout.
func NewInvoice(p *domain.Payment) *Invoice {
	inv := &Invoice{
		PaymentID: p.ID,
		Number:    p.InvoiceNumber,
		Date:      p.CreatedAt,
		Method:    p.Method,
		Total:     p.Total,
		Lines:     make([]InvoiceLine, 0, len(p.Details)),
	}
	for _, d := range p.Details {
		inv.Lines = append(inv.Lines, InvoiceLine{
			ProductID: d.ProductID,
			Name:      d.ProductName,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice,
			Subtotal:  d.Subtotal(),
		})
	}
	return inv
}
