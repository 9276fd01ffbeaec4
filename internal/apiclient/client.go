// Package apiclient talks to the marketplace HTTP API. Client implements
// storefront.Backend and storefront.PageFetcher.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
	"raices-verdes/internal/service/checkout"
)

type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Timeout also bounds event
// streams, so leave it zero when CartEvents is used.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: &http.Client{}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type productBody struct {
	ID          string          `json:"id"`
	ProducerID  string          `json:"producerId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Community   string          `json:"community"`
	ImageURL    string          `json:"imageUrl"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (b productBody) toDomain() domain.Product {
	return domain.Product{
		ID:          b.ID,
		ProducerID:  b.ProducerID,
		Name:        b.Name,
		Price:       b.Price,
		Community:   b.Community,
		ImageURL:    b.ImageURL,
		Stock:       b.Stock,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
}

type cartLineBody struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"imageUrl"`
	Stock     int             `json:"stock"`
}

func (b cartLineBody) toDomain() domain.CartLine {
	return domain.CartLine{
		ID:        b.ID,
		ProductID: b.ProductID,
		Quantity:  b.Quantity,
		Product: domain.ProductSnapshot{
			Name:     b.Name,
			Price:    b.Price,
			ImageURL: b.ImageURL,
			Stock:    b.Stock,
		},
	}
}

type cartBody struct {
	Lines []cartLineBody  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

type checkoutBody struct {
	PaymentID     string          `json:"paymentId"`
	Total         decimal.Decimal `json:"total"`
	InvoiceNumber int64           `json:"invoiceNumber"`
}

type paymentBody struct {
	ID            string               `json:"id"`
	Total         decimal.Decimal      `json:"total"`
	Method        domain.PaymentMethod `json:"method"`
	InvoiceNumber int64                `json:"invoiceNumber"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// FetchPage requests limit products starting at offset.
func (c *Client) FetchPage(ctx context.Context, filter domain.ProductFilter, offset, limit int) ([]domain.Product, error) {
	q := url.Values{}
	q.Set("from", strconv.Itoa(offset))
	q.Set("to", strconv.Itoa(offset+limit-1))
	if filter.Community != "" {
		q.Set("community", filter.Community)
	}
	if filter.PriceMin != nil {
		q.Set("priceMin", filter.PriceMin.String())
	}
	if filter.PriceMax != nil {
		q.Set("priceMax", filter.PriceMax.String())
	}
	var body []productBody
	if err := c.do(ctx, http.MethodGet, "/products", q, nil, &body); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(body))
	for _, p := range body {
		out = append(out, p.toDomain())
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	var body productBody
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &body); err != nil {
		return nil, err
	}
	p := body.toDomain()
	return &p, nil
}

func (c *Client) Communities(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/communities", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Comments(ctx context.Context, productID string) ([]domain.Comment, error) {
	var out []domain.Comment
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID)+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Articles lists traditional-medicine articles, newest first.
func (c *Client) Articles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Title != "" {
		q.Set("q", filter.Title)
	}
	var out []domain.Article
	if err := c.do(ctx, http.MethodGet, "/articles", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// React sends a like or dislike; repeating the current one withdraws it.
func (c *Client) React(ctx context.Context, articleID string, reaction domain.Reaction) (*domain.Article, error) {
	var out domain.Article
	in := map[string]string{"reaction": string(reaction)}
	if err := c.do(ctx, http.MethodPost, "/articles/"+url.PathEscape(articleID)+"/reactions", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the role the API resolved for the current token.
func (c *Client) Me(ctx context.Context) (domain.Actor, error) {
	var a domain.Actor
	err := c.do(ctx, http.MethodGet, "/me", nil, nil, &a)
	return a, err
}

func (c *Client) ListCart(ctx context.Context) ([]domain.CartLine, error) {
	var body cartBody
	if err := c.do(ctx, http.MethodGet, "/me/cart", nil, nil, &body); err != nil {
		return nil, err
	}
	out := make([]domain.CartLine, 0, len(body.Lines))
	for _, l := range body.Lines {
		out = append(out, l.toDomain())
	}
	return out, nil
}

func (c *Client) AddToCart(ctx context.Context, productID string) (*domain.CartLine, error) {
	var body cartLineBody
	in := map[string]string{"productId": productID}
	if err := c.do(ctx, http.MethodPost, "/me/cart/lines", nil, in, &body); err != nil {
		return nil, err
	}
	l := body.toDomain()
	return &l, nil
}

func (c *Client) SetQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartLine, error) {
	var body cartLineBody
	in := map[string]int{"quantity": quantity}
	if err := c.do(ctx, http.MethodPatch, "/me/cart/lines/"+url.PathEscape(lineID), nil, in, &body); err != nil {
		return nil, err
	}
	l := body.toDomain()
	return &l, nil
}

func (c *Client) RemoveLine(ctx context.Context, lineID string) error {
	return c.do(ctx, http.MethodDelete, "/me/cart/lines/"+url.PathEscape(lineID), nil, nil, nil)
}

// Checkout returns the created payment. Only ID, Total, Method and
// InvoiceNumber are filled in; fetch the invoice for the lines.
func (c *Client) Checkout(ctx context.Context, method domain.PaymentMethod) (*domain.Payment, error) {
	var body checkoutBody
	in := map[string]string{"method": string(method)}
	if err := c.do(ctx, http.MethodPost, "/checkout", nil, in, &body); err != nil {
		return nil, err
	}
	return &domain.Payment{
		ID:            body.PaymentID,
		Total:         body.Total,
		Method:        method,
		InvoiceNumber: body.InvoiceNumber,
	}, nil
}

func (c *Client) Invoice(ctx context.Context, paymentID string) (*checkout.Invoice, error) {
	var inv checkout.Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+url.PathEscape(paymentID), nil, nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) Payments(ctx context.Context) ([]domain.Payment, error) {
	var body []paymentBody
	if err := c.do(ctx, http.MethodGet, "/me/payments", nil, nil, &body); err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0, len(body))
	for _, p := range body {
		out = append(out, domain.Payment{
			ID:            p.ID,
			Total:         p.Total,
			Method:        p.Method,
			InvoiceNumber: p.InvoiceNumber,
			CreatedAt:     p.CreatedAt,
		})
	}
	return out, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/me/signout", nil, nil, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, in interface{}) (*http.Request, error) {
	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, q, in)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
