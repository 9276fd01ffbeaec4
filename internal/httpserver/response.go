package httpserver

import (
	"time"

	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
	"raices-verdes/internal/service/checkout"
	"raices-verdes/internal/service/producer"
)

// Money is rendered as a string with two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type productResponse struct {
	ID          string    `json:"id"`
	ProducerID  string    `json:"producerId"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Community   string    `json:"community,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Stock       int       `json:"stock"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		ProducerID:  p.ProducerID,
		Name:        p.Name,
		Price:       money(p.Price),
		Community:   p.Community,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

func toProductResponses(ps []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResponse(p))
	}
	return out
}

type cartLineResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Stock     int    `json:"stock"`
	Subtotal  string `json:"subtotal"`
}

type cartResponse struct {
	Lines []cartLineResponse `json:"lines"`
	Total string             `json:"total"`
}

func toCartLineResponse(l domain.CartLine) cartLineResponse {
	return cartLineResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		Name:      l.Product.Name,
		Price:     money(l.Product.Price),
		ImageURL:  l.Product.ImageURL,
		Stock:     l.Product.Stock,
		Subtotal:  money(l.Subtotal()),
	}
}

func toCartResponse(lines []domain.CartLine, total decimal.Decimal) cartResponse {
	out := cartResponse{Lines: make([]cartLineResponse, 0, len(lines)), Total: money(total)}
	for _, l := range lines {
		out.Lines = append(out.Lines, toCartLineResponse(l))
	}
	return out
}

type checkoutResponse struct {
	PaymentID     string `json:"paymentId"`
	Total         string `json:"total"`
	InvoiceNumber int64  `json:"invoiceNumber"`
}

type paymentResponse struct {
	ID            string    `json:"id"`
	Total         string    `json:"total"`
	Method        string    `json:"method"`
	InvoiceNumber int64     `json:"invoiceNumber"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toPaymentResponses(ps []domain.Payment) []paymentResponse {
	out := make([]paymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, paymentResponse{
			ID:            p.ID,
			Total:         money(p.Total),
			Method:        string(p.Method),
			InvoiceNumber: p.InvoiceNumber,
			CreatedAt:     p.CreatedAt,
		})
	}
	return out
}

type invoiceLineResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Subtotal  string `json:"subtotal"`
}

type invoiceResponse struct {
	PaymentID     string                `json:"paymentId"`
	InvoiceNumber int64                 `json:"invoiceNumber"`
	Date          time.Time             `json:"date"`
	Method        string                `json:"method"`
	Lines         []invoiceLineResponse `json:"lines"`
	Total         string                `json:"total"`
}

func toInvoiceResponse(inv *checkout.Invoice) invoiceResponse {
	out := invoiceResponse{
		PaymentID:     inv.PaymentID,
		InvoiceNumber: inv.Number,
		Date:          inv.Date,
		Method:        string(inv.Method),
		Total:         money(inv.Total),
		Lines:         make([]invoiceLineResponse, 0, len(inv.Lines)),
	}
	for _, l := range inv.Lines {
		out.Lines = append(out.Lines, invoiceLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: money(l.UnitPrice),
			Subtotal:  money(l.Subtotal),
		})
	}
	return out
}

type actorResponse struct {
	Role     string           `json:"role"`
	ID       string           `json:"id,omitempty"`
	Email    string           `json:"email,omitempty"`
	Name     string           `json:"name,omitempty"`
	Verified *bool            `json:"verified,omitempty"`
	Producer *domain.Producer `json:"producer,omitempty"`
}

func toActorResponse(a domain.Actor) actorResponse {
	out := actorResponse{Role: string(a.Role), ID: a.ID, Email: a.Email, Name: a.Name, Producer: a.Producer}
	if a.Producer != nil {
		v := a.Producer.Verified()
		out.Verified = &v
	}
	return out
}

type producerPageResponse struct {
	ID           string               `json:"id"`
	BusinessName string               `json:"businessName"`
	Community    string               `json:"community,omitempty"`
	ContactEmail string               `json:"contactEmail,omitempty"`
	Phone        string               `json:"phone,omitempty"`
	LogoURL      string               `json:"logoUrl,omitempty"`
	Rating       domain.RatingSummary `json:"rating"`
	Products     []productResponse    `json:"products"`
}

// toProducerPageResponse leaves out the verification flags and document.
func toProducerPageResponse(p *producer.PublicPage) producerPageResponse {
	return producerPageResponse{
		ID:           p.Producer.ID,
		BusinessName: p.Producer.BusinessName,
		Community:    p.Producer.Community,
		ContactEmail: p.Producer.ContactEmail,
		Phone:        p.Producer.Phone,
		LogoURL:      p.Producer.LogoURL,
		Rating:       p.Rating,
		Products:     toProductResponses(p.Products),
	}
}
