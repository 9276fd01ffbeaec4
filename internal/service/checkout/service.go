// Package checkout converts a client's cart into a payment.
package checkout

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"raices-verdes/internal/domain"
)

type paymentRepo interface {
	Checkout(ctx context.Context, clientID string, method domain.PaymentMethod) (*domain.Payment, error)
	GetInvoice(ctx context.Context, paymentID, clientID string) (*domain.Payment, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Payment, error)
}

type clientRepo interface {
	Ensure(ctx context.Context, c domain.Client) (*domain.Client, error)
}

type cartReader interface {
	ListByClient(ctx context.Context, clientID string) ([]domain.CartLine, error)
}

type cartNotifier interface {
	NotifyCleared(ctx context.Context, clientID string)
}

type eventPublisher interface {
	PaymentCreated(ctx context.Context, p *domain.Payment) error
}

type Service struct {
	payments paymentRepo
	clients  clientRepo
	carts    cartReader
	notifier cartNotifier
	events   eventPublisher
	timeout  time.Duration
	logger   zerolog.Logger
}

type Deps struct {
	Payments paymentRepo
	Clients  clientRepo
	Carts    cartReader
	Notifier cartNotifier
	Events   eventPublisher
}

func New(deps Deps, timeout time.Duration, logger *zerolog.Logger) *Service {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "checkout").Logger()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		payments: deps.Payments,
		clients:  deps.Clients,
		carts:    deps.Carts,
		notifier: deps.Notifier,
		events:   deps.Events,
		timeout:  timeout,
		logger:   l,
	}
}

// Checkout validates the cart, then runs the atomic payment transaction. Once
// the preconditions pass, the transaction no longer follows ctx cancellation:
// it runs to completion or to the checkout timeout.
func (s *Service) Checkout(ctx context.Context, actor domain.Actor, rawMethod string) (*domain.Payment, error) {
	if !actor.HasSession() {
		return nil, domain.ErrAuthRequired
	}
	if actor.Role == domain.RoleProducer {
		return nil, domain.NewValidationError("producer accounts cannot buy")
	}
	method, err := domain.ParsePaymentMethod(rawMethod)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.ListByClient(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.EmptyCartError()
	}
	if shortages := shortagesOf(lines); len(shortages) > 0 {
		return nil, &domain.StockError{Shortages: shortages}
	}

	if actor.Role != domain.RoleClient {
		// session without a client profile: create the minimal one payments need
		if _, err := s.clients.Ensure(ctx, domain.Client{ID: actor.ID, Name: actor.Name, Email: actor.Email}); err != nil {
			return nil, err
		}
		s.logger.Info().Str("client_id", actor.ID).Msg("created missing client profile")
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	payment, err := s.payments.Checkout(txCtx, actor.ID, method)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyCleared(txCtx, actor.ID)
	}
	if s.events != nil {
		if err := s.events.PaymentCreated(txCtx, payment); err != nil {
			s.logger.Warn().Err(err).Str("payment_id", payment.ID).Msg("publish payment event")
		}
	}
	return payment, nil
}

func shortagesOf(lines []domain.CartLine) []domain.StockShortage {
	var out []domain.StockShortage
	for _, l := range lines {
		if l.Quantity > l.Product.Stock {
			out = append(out, domain.StockShortage{
				ProductID: l.ProductID,
				Name:      l.Product.Name,
				Requested: l.Quantity,
				Available: l.Product.Stock,
			})
		}
	}
	return out
}

// Invoice returns the invoice of one of the actor's payments.
func (s *Service) Invoice(ctx context.Context, actor domain.Actor, paymentID string) (*Invoice, error) {
	if !actor.HasSession() {
		return nil, domain.ErrAuthRequired
	}
	p, err := s.payments.GetInvoice(ctx, paymentID, actor.ID)
	if err != nil {
		return nil, err
	}
	return NewInvoice(p), nil
}

func (s *Service) History(ctx context.Context, actor domain.Actor) ([]domain.Payment, error) {
	if !actor.HasSession() {
		return nil, domain.ErrAuthRequired
	}
	return s.payments.ListByClient(ctx, actor.ID)
}
