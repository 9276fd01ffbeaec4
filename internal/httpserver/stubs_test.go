package httpserver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
	"raices-verdes/internal/service/catalog"
	"raices-verdes/internal/service/checkout"
	"raices-verdes/internal/service/producer"
)

const (
	productX = "0b8e2c3e-4f07-4c0d-9a44-5f2f3b1c0a01"
	lineA    = "5d0c8a8e-7f3c-4b1c-8d2b-9a0a1c2b3d4e"
	paymentP = "9f1e2d3c-4b5a-4678-9abc-def012345678"
	articleM = "aaaaaaaa-0000-4000-8000-000000000001"
	kaiID    = "11111111-1111-4111-8111-111111111111"
)

var (
	clientAna     = domain.Actor{Role: domain.RoleClient, ID: "ana", Name: "Ana"}
	producerEmail = domain.Actor{Role: domain.RoleProducer, ID: "prod", Producer: &domain.Producer{ID: "prod", EmailConfirmed: true}}
	producerKai   = domain.Actor{Role: domain.RoleProducer, ID: kaiID, Producer: &domain.Producer{ID: kaiID, BusinessName: "Tejidos Wayuu Kaí", EmailConfirmed: true, DocumentVerified: true}}
)

type stubSessions struct {
	signedOut []string
}

func (s *stubSessions) Resolve(_ context.Context, bearer string) (domain.Actor, error) {
	switch strings.TrimPrefix(bearer, "Bearer ") {
	case "ana":
		return clientAna, nil
	case "prod":
		return producerEmail, nil
	case "kai":
		return producerKai, nil
	case "broken":
		return domain.Actor{Role: domain.RoleUnknown}, fmt.Errorf("%w: db down", domain.ErrUnknownActor)
	}
	return domain.Anonymous(), nil
}

func (s *stubSessions) SignOut(_ context.Context, actor domain.Actor) error {
	s.signedOut = append(s.signedOut, actor.ID)
	return nil
}

type stubCatalog struct {
	lastFilter domain.ProductFilter
	lastOffset int
	lastLimit  int
	products   []domain.Product
	err        error
}

func (s *stubCatalog) FetchPage(_ context.Context, f domain.ProductFilter, offset, limit int) ([]domain.Product, error) {
	s.lastFilter, s.lastOffset, s.lastLimit = f, offset, limit
	return s.products, s.err
}

func (s *stubCatalog) Get(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubCatalog) Communities(_ context.Context) ([]string, error) {
	return []string{"Wayuu"}, nil
}

func (s *stubCatalog) Comments(_ context.Context, _ string) ([]domain.Comment, error) {
	return []domain.Comment{}, nil
}

func (s *stubCatalog) AddComment(_ context.Context, actor domain.Actor, productID string, in catalog.CommentInput) (*domain.Comment, error) {
	return &domain.Comment{ProductID: productID, AuthorID: actor.ID, Content: in.Content, Rating: in.Rating}, nil
}

type stubCart struct {
	mu     sync.Mutex
	lines  []domain.CartLine
	addErr error
	feed   chan domain.ChangeEvent
	subbed chan struct{}
}

func (s *stubCart) List(_ context.Context, actor domain.Actor) ([]domain.CartLine, error) {
	if !actor.HasSession() {
		return []domain.CartLine{}, nil
	}
	return s.lines, nil
}

func (s *stubCart) Add(_ context.Context, actor domain.Actor, productID string) (*domain.CartLine, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &domain.CartLine{ID: lineA, ClientID: actor.ID, ProductID: productID, Quantity: 1,
		Product: domain.ProductSnapshot{Name: "Mochila", Price: decimal.RequireFromString("10")}}, nil
}

func (s *stubCart) SetQuantity(_ context.Context, _ domain.Actor, lineID string, quantity int) (*domain.CartLine, error) {
	if quantity < 1 {
		return nil, domain.NewValidationError("quantity must be at least 1")
	}
	return &domain.CartLine{ID: lineID, Quantity: quantity}, nil
}

func (s *stubCart) Remove(_ context.Context, _ domain.Actor, _ string) error {
	return nil
}

func (s *stubCart) Subscribe(_ context.Context, _ domain.Actor) (<-chan domain.ChangeEvent, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feed == nil {
		s.feed = make(chan domain.ChangeEvent, 4)
	}
	if s.subbed != nil {
		close(s.subbed)
		s.subbed = nil
	}
	return s.feed, func() {}, nil
}

func (s *stubCart) Total(lines []domain.CartLine) decimal.Decimal {
	return domain.CartTotal(lines)
}

type stubCheckout struct {
	payment *domain.Payment
	err     error
}

func (s *stubCheckout) Checkout(_ context.Context, _ domain.Actor, method string) (*domain.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, err := domain.ParsePaymentMethod(method); err != nil {
		return nil, err
	}
	return s.payment, nil
}

func (s *stubCheckout) Invoice(_ context.Context, actor domain.Actor, paymentID string) (*checkout.Invoice, error) {
	if s.payment == nil || paymentID != s.payment.ID || actor.ID != s.payment.ClientID {
		return nil, domain.ErrNotFound
	}
	return checkout.NewInvoice(s.payment), nil
}

func (s *stubCheckout) History(_ context.Context, _ domain.Actor) ([]domain.Payment, error) {
	if s.payment == nil {
		return nil, nil
	}
	return []domain.Payment{*s.payment}, nil
}

type stubProducers struct {
	deleted []string
}

func (*stubProducers) GetProducerID(_ context.Context, productID string) (string, error) {
	if productID == productX {
		return "prod", nil
	}
	return "", domain.ErrNotFound
}

func (*stubProducers) Profile(_ context.Context, actor domain.Actor) (*producer.Profile, error) {
	if actor.Producer == nil || !actor.Producer.Verified() {
		return nil, domain.ErrProducerUnverified
	}
	return &producer.Profile{Producer: *actor.Producer}, nil
}

func (*stubProducers) PublicPage(_ context.Context, producerID string) (*producer.PublicPage, error) {
	if producerID != kaiID {
		return nil, domain.ErrNotFound
	}
	return &producer.PublicPage{
		Producer: *producerKai.Producer,
		Products: []domain.Product{{ID: productX, ProducerID: kaiID, Name: "Mochila", Price: decimal.RequireFromString("120")}},
		Rating:   domain.RatingSummary{Average: 4.5, Count: 2},
	}, nil
}

func verifiedOwner(actor domain.Actor) error {
	if actor.Producer == nil || !actor.Producer.Verified() {
		return domain.ErrProducerUnverified
	}
	return nil
}

func (*stubProducers) CreateProduct(_ context.Context, actor domain.Actor, in producer.ProductInput) (*domain.Product, error) {
	if err := verifiedOwner(actor); err != nil {
		return nil, err
	}
	if in.Price == nil {
		return nil, domain.NewValidationError("invalid product", "price required")
	}
	return &domain.Product{ID: productX, ProducerID: actor.ID, Name: in.Name, Price: *in.Price, Stock: in.Stock}, nil
}

func (*stubProducers) UpdateProduct(_ context.Context, actor domain.Actor, productID string, in producer.ProductInput) (*domain.Product, error) {
	if err := verifiedOwner(actor); err != nil {
		return nil, err
	}
	if productID != productX {
		return nil, domain.ErrNotFound
	}
	return &domain.Product{ID: productID, ProducerID: actor.ID, Name: in.Name, Price: *in.Price, Stock: in.Stock}, nil
}

func (s *stubProducers) DeleteProduct(_ context.Context, actor domain.Actor, productID string) error {
	if err := verifiedOwner(actor); err != nil {
		return err
	}
	if productID != productX {
		return domain.ErrNotFound
	}
	s.deleted = append(s.deleted, productID)
	return nil
}

type stubArticles struct {
	lastViewer string
	lastFilter domain.ArticleFilter
}

func (s *stubArticles) List(_ context.Context, actor domain.Actor, filter domain.ArticleFilter) ([]domain.Article, error) {
	s.lastViewer, s.lastFilter = actor.ID, filter
	return []domain.Article{{ID: articleM, Title: "Matico", Likes: 3}}, nil
}

func (s *stubArticles) React(_ context.Context, actor domain.Actor, articleID, reaction string) (*domain.Article, error) {
	r, err := domain.ParseReaction(reaction)
	if err != nil {
		return nil, err
	}
	if articleID != articleM {
		return nil, domain.ErrNotFound
	}
	return &domain.Article{ID: articleID, Title: "Matico", Likes: 4, Reaction: r}, nil
}

func (s *stubArticles) Categories(_ context.Context) ([]string, error) {
	return []string{"Plantas"}, nil
}

type fakes struct {
	sessions  *stubSessions
	catalog   *stubCatalog
	cart      *stubCart
	checkout  *stubCheckout
	producers *stubProducers
	articles  *stubArticles
}

func newFakes() *fakes {
	return &fakes{
		sessions:  &stubSessions{},
		catalog:   &stubCatalog{},
		cart:      &stubCart{},
		checkout:  &stubCheckout{},
		producers: &stubProducers{},
		articles:  &stubArticles{},
	}
}

func (f *fakes) deps() Deps {
	return Deps{
		Sessions:  f.sessions,
		Catalog:   f.catalog,
		Cart:      f.cart,
		Checkout:  f.checkout,
		Producers: f.producers,
		Articles:  f.articles,
	}
}

func discardLogger() zerolog.Logger {
	return zerolog.Nop()
}
