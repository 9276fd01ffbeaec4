// Package cart implements the server side of the cart store: owner-scoped
// mutations that each emit a change event for live subscribers.
package cart

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

type cartRepo interface {
	ListByClient(ctx context.Context, clientID string) ([]domain.CartLine, error)
	AddOne(ctx context.Context, clientID, productID string) (*domain.CartLine, bool, error)
	SetQuantity(ctx context.Context, clientID, lineID string, quantity int) (*domain.CartLine, error)
	Remove(ctx context.Context, clientID, lineID string) error
}

type feed interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
	Subscribe(ctx context.Context, collection, key string) (<-chan domain.ChangeEvent, func(), error)
}

type Service struct {
	repo   cartRepo
	feed   feed
	logger zerolog.Logger
	now    func() time.Time
}

func New(repo cartRepo, feed feed, logger *zerolog.Logger) *Service {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "cart").Logger()
	}
	return &Service{repo: repo, feed: feed, logger: l, now: time.Now}
}

// List returns the actor's lines oldest first. Without a session the cart is
// empty.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.CartLine, error) {
	if !actor.HasSession() {
		return []domain.CartLine{}, nil
	}
	return s.repo.ListByClient(ctx, actor.ID)
}

// Add puts one unit of productID in the cart, creating the line on first add.
func (s *Service) Add(ctx context.Context, actor domain.Actor, productID string) (*domain.CartLine, error) {
	if err := canShop(actor); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.NewValidationError("productId required")
	}

	line, inserted, err := s.repo.AddOne(ctx, actor.ID, productID)
	if err != nil {
		return nil, err
	}
	kind := domain.ChangeUpdate
	if inserted {
		kind = domain.ChangeInsert
	}
	s.publish(ctx, actor.ID, kind, line.ID)
	return line, nil
}

// SetQuantity replaces the quantity of an owned line. Upper bounds are
// enforced at checkout against live stock, not here.
func (s *Service) SetQuantity(ctx context.Context, actor domain.Actor, lineID string, quantity int) (*domain.CartLine, error) {
	if !actor.HasSession() {
		return nil, domain.ErrAuthRequired
	}
	if quantity < 1 {
		return nil, domain.NewValidationError("quantity must be at least 1")
	}
	line, err := s.repo.SetQuantity(ctx, actor.ID, lineID, quantity)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, actor.ID, domain.ChangeUpdate, line.ID)
	return line, nil
}

func (s *Service) Remove(ctx context.Context, actor domain.Actor, lineID string) error {
	if !actor.HasSession() {
		return domain.ErrAuthRequired
	}
	if err := s.repo.Remove(ctx, actor.ID, lineID); err != nil {
		return err
	}
	s.publish(ctx, actor.ID, domain.ChangeDelete, lineID)
	return nil
}

// Subscribe opens the change feed of the actor's cart rows.
func (s *Service) Subscribe(ctx context.Context, actor domain.Actor) (<-chan domain.ChangeEvent, func(), error) {
	if !actor.HasSession() {
		return nil, nil, domain.ErrAuthRequired
	}
	return s.feed.Subscribe(ctx, domain.CollectionCartLines, actor.ID)
}

// Total is derived on every read and never stored.
func (s *Service) Total(lines []domain.CartLine) decimal.Decimal {
	return domain.CartTotal(lines)
}

// NotifyCleared tells subscribers that every line of clientID is gone, e.g.
// after a checkout.
func (s *Service) NotifyCleared(ctx context.Context, clientID string) {
	s.publish(ctx, clientID, domain.ChangeDelete, "")
}

// NotifyProductChanged tells clientID's subscribers that a product in their
// cart was edited or removed by its producer.
func (s *Service) NotifyProductChanged(ctx context.Context, clientID string, kind domain.ChangeKind) {
	s.publish(ctx, clientID, kind, "")
}

func (s *Service) publish(ctx context.Context, clientID string, kind domain.ChangeKind, rowID string) {
	if s.feed == nil {
		return
	}
	ev := domain.ChangeEvent{
		Collection: domain.CollectionCartLines,
		Kind:       kind,
		Key:        clientID,
		RowID:      rowID,
		At:         s.now(),
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Str("kind", string(kind)).Msg("publish cart change")
	}
}

func canShop(actor domain.Actor) error {
	if !actor.HasSession() {
		return domain.ErrAuthRequired
	}
	if actor.Role == domain.RoleProducer {
		return domain.NewValidationError("producer accounts cannot buy")
	}
	return nil
}
