// Package catalog serves the product listing, product detail and comments.
package catalog

import (
	"context"
	"strings"

	"raices-verdes/internal/domain"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 48
)

type productRepo interface {
	ListPage(ctx context.Context, filter domain.ProductFilter, offset, limit int) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListByProducer(ctx context.Context, producerID string) ([]domain.Product, error)
	ListCommunities(ctx context.Context) ([]string, error)
}

type commentRepo interface {
	ListByProduct(ctx context.Context, productID string) ([]domain.Comment, error)
	Create(ctx context.Context, c domain.Comment) (*domain.Comment, error)
}

// imageResolver turns stored object paths into URLs clients can load.
type imageResolver interface {
	PublicURL(path string) string
}

type Service struct {
	products productRepo
	comments commentRepo
	images   imageResolver
}

func New(products productRepo, comments commentRepo, images imageResolver) *Service {
	return &Service{products: products, comments: comments, images: images}
}

// FetchPage returns up to limit products newest first, skipping offset.
// A zero limit means the default page size.
func (s *Service) FetchPage(ctx context.Context, filter domain.ProductFilter, offset, limit int) ([]domain.Product, error) {
	if offset < 0 {
		return nil, domain.NewValidationError("offset must not be negative")
	}
	if limit < 0 {
		return nil, domain.NewValidationError("limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if filter.PriceMin != nil && filter.PriceMax != nil && filter.PriceMin.GreaterThan(*filter.PriceMax) {
		return nil, domain.NewValidationError("priceMin must not exceed priceMax")
	}

	products, err := s.products.ListPage(ctx, filter, offset, limit)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].ImageURL = s.imageURL(products[i].ImageURL)
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ImageURL = s.imageURL(p.ImageURL)
	return p, nil
}

func (s *Service) ByProducer(ctx context.Context, producerID string) ([]domain.Product, error) {
	products, err := s.products.ListByProducer(ctx, producerID)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].ImageURL = s.imageURL(products[i].ImageURL)
	}
	return products, nil
}

func (s *Service) Communities(ctx context.Context) ([]string, error) {
	out, err := s.products.ListCommunities(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *Service) Comments(ctx context.Context, productID string) ([]domain.Comment, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.comments.ListByProduct(ctx, productID)
}

type CommentInput struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

func (s *Service) AddComment(ctx context.Context, actor domain.Actor, productID string, in CommentInput) (*domain.Comment, error) {
	if !actor.HasSession() {
		return nil, domain.ErrAuthRequired
	}
	var problems []string
	content := strings.TrimSpace(in.Content)
	if content == "" {
		problems = append(problems, "content required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		problems = append(problems, "rating must be between 1 and 5")
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError("invalid comment", problems...)
	}
	return s.comments.Create(ctx, domain.Comment{
		ProductID: productID,
		AuthorID:  actor.ID,
		Content:   content,
		Rating:    in.Rating,
	})
}

func (s *Service) imageURL(path string) string {
	if s.images == nil {
		return path
	}
	return s.images.PublicURL(path)
}
