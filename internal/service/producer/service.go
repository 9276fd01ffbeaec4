// Package producer is the verification boundary for seller accounts and the
// management of their own products.
package producer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

type producerRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Producer, error)
}

type productRepo interface {
	GetProducerID(ctx context.Context, productID string) (string, error)
	ListByProducer(ctx context.Context, producerID string) ([]domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	UpdateOwned(ctx context.Context, p domain.Product) (*domain.Product, []string, error)
	DeleteOwned(ctx context.Context, producerID, productID string) ([]string, error)
}

type ratingRepo interface {
	RatingByProducer(ctx context.Context, producerID string) (domain.RatingSummary, error)
}

type urlSigner interface {
	PublicURL(path string) string
	SignedURL(path string, ttl time.Duration) string
}

type cartNotifier interface {
	NotifyProductChanged(ctx context.Context, clientID string, kind domain.ChangeKind)
}

// documentURLTTL bounds how long a producer's own document link stays valid.
const documentURLTTL = 15 * time.Minute

type Service struct {
	producers producerRepo
	products  productRepo
	ratings   ratingRepo
	files     urlSigner
	notifier  cartNotifier
	logger    zerolog.Logger
}

// Deps lists the collaborators. Files and Notifier are optional.
type Deps struct {
	Producers producerRepo
	Products  productRepo
	Ratings   ratingRepo
	Files     urlSigner
	Notifier  cartNotifier
}

func New(deps Deps, logger *zerolog.Logger) *Service {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "producers").Logger()
	}
	return &Service{
		producers: deps.Producers,
		products:  deps.Products,
		ratings:   deps.Ratings,
		files:     deps.Files,
		notifier:  deps.Notifier,
		logger:    l,
	}
}

// IsVerifiedProducer reports whether id belongs to a producer with both
// verification flags set. Unknown ids are simply not verified.
func (s *Service) IsVerifiedProducer(ctx context.Context, id string) (bool, error) {
	p, err := s.producers.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Verified(), nil
}

func (s *Service) GetProducerID(ctx context.Context, productID string) (string, error) {
	return s.products.GetProducerID(ctx, productID)
}

// Profile is what a verified producer sees about their own account.
type Profile struct {
	Producer    domain.Producer  `json:"producer"`
	DocumentURL string           `json:"documentUrl,omitempty"`
	Products    []domain.Product `json:"products"`
}

// Profile gates producer-only views.
func (s *Service) Profile(ctx context.Context, actor domain.Actor) (*Profile, error) {
	p, err := s.verified(ctx, actor)
	if err != nil {
		return nil, err
	}
	products, err := s.products.ListByProducer(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	out := &Profile{Producer: *p, Products: products}
	out.Producer.LogoURL = s.publicURL(p.LogoURL)
	if s.files != nil && p.DocumentRef != "" {
		out.DocumentURL = s.files.SignedURL(p.DocumentRef, documentURLTTL)
	}
	s.presentProducts(out.Products)
	return out, nil
}

// verified re-reads the verification state from the store so a stale
// session cannot bypass a revoked approval.
func (s *Service) verified(ctx context.Context, actor domain.Actor) (*domain.Producer, error) {
	if !actor.HasSession() {
		return nil, domain.ErrAuthRequired
	}
	if actor.Role != domain.RoleProducer {
		return nil, domain.ErrProducerUnverified
	}
	p, err := s.producers.GetByID(ctx, actor.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrProducerUnverified
	}
	if err != nil {
		return nil, err
	}
	if !p.Verified() {
		return nil, domain.ErrProducerUnverified
	}
	return p, nil
}

// PublicPage is the storefront of one producer.
type PublicPage struct {
	Producer domain.Producer
	Products []domain.Product
	Rating   domain.RatingSummary
}

// PublicPage shows a verified producer with their products and the average
// rating left on them. Unverified producers are not listed publicly.
func (s *Service) PublicPage(ctx context.Context, producerID string) (*PublicPage, error) {
	p, err := s.producers.GetByID(ctx, producerID)
	if err != nil {
		return nil, err
	}
	if !p.Verified() {
		return nil, domain.ErrNotFound
	}
	products, err := s.products.ListByProducer(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	rating, err := s.ratings.RatingByProducer(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	out := &PublicPage{Producer: *p, Products: products, Rating: rating}
	out.Producer.LogoURL = s.publicURL(p.LogoURL)
	s.presentProducts(out.Products)
	return out, nil
}

// ProductInput is the editable part of a product. ImageRef is a storage path
// of an image uploaded beforehand.
type ProductInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Community   string           `json:"community"`
	ImageRef    string           `json:"imageRef"`
	Stock       int              `json:"stock"`
}

func (in ProductInput) product(producerID string) (domain.Product, error) {
	p := domain.Product{
		ProducerID:  producerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Community:   strings.TrimSpace(in.Community),
		ImageURL:    strings.TrimSpace(in.ImageRef),
		Stock:       in.Stock,
	}
	var problems []string
	if p.Name == "" {
		problems = append(problems, "name required")
	}
	if p.Description == "" {
		problems = append(problems, "description required")
	}
	if p.Community == "" {
		problems = append(problems, "community required")
	}
	switch {
	case in.Price == nil:
		problems = append(problems, "price required")
	case in.Price.IsNegative():
		problems = append(problems, "price must not be negative")
	case !in.Price.Equal(in.Price.Round(2)):
		problems = append(problems, "price allows at most two decimals")
	default:
		p.Price = *in.Price
	}
	if in.Stock < 0 {
		problems = append(problems, "stock must not be negative")
	}
	if len(problems) > 0 {
		return domain.Product{}, domain.NewValidationError("invalid product", problems...)
	}
	return p, nil
}

func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, in ProductInput) (*domain.Product, error) {
	owner, err := s.verified(ctx, actor)
	if err != nil {
		return nil, err
	}
	p, err := in.product(owner.ID)
	if err != nil {
		return nil, err
	}
	out, err := s.products.Create(ctx, p)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.NewValidationError("invalid product", "a product with this name already exists")
	}
	if err != nil {
		return nil, err
	}
	s.presentProduct(out)
	return out, nil
}

// UpdateProduct replaces the editable fields of one of the actor's products.
// Carts holding it are told to re-read, since their prices and stock moved.
func (s *Service) UpdateProduct(ctx context.Context, actor domain.Actor, productID string, in ProductInput) (*domain.Product, error) {
	owner, err := s.verified(ctx, actor)
	if err != nil {
		return nil, err
	}
	p, err := in.product(owner.ID)
	if err != nil {
		return nil, err
	}
	p.ID = productID
	out, holders, err := s.products.UpdateOwned(ctx, p)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.NewValidationError("invalid product", "a product with this name already exists")
	}
	if err != nil {
		return nil, err
	}
	s.notify(ctx, holders, domain.ChangeUpdate)
	s.presentProduct(out)
	return out, nil
}

// DeleteProduct removes one of the actor's products. Cart lines holding it
// go with it; past invoices keep their snapshot.
func (s *Service) DeleteProduct(ctx context.Context, actor domain.Actor, productID string) error {
	owner, err := s.verified(ctx, actor)
	if err != nil {
		return err
	}
	holders, err := s.products.DeleteOwned(ctx, owner.ID, productID)
	if err != nil {
		return err
	}
	s.notify(ctx, holders, domain.ChangeDelete)
	return nil
}

func (s *Service) notify(ctx context.Context, clientIDs []string, kind domain.ChangeKind) {
	if s.notifier == nil {
		return
	}
	for _, id := range clientIDs {
		s.notifier.NotifyProductChanged(ctx, id, kind)
	}
}

func (s *Service) publicURL(path string) string {
	if s.files == nil || path == "" {
		return path
	}
	return s.files.PublicURL(path)
}

func (s *Service) presentProduct(p *domain.Product) {
	p.ImageURL = s.publicURL(p.ImageURL)
}

func (s *Service) presentProducts(ps []domain.Product) {
	for i := range ps {
		s.presentProduct(&ps[i])
	}
}
