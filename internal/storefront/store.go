// Package storefront holds the client side of a shopping session: a cart
// view kept in sync with the API and a catalog pager.
package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

// ErrCheckoutAbandoned is returned when the caller stops waiting for a
// checkout. The request itself keeps running and may still succeed.
var ErrCheckoutAbandoned = errors.New("checkout abandoned before a result was received")

var errAlreadyStarted = errors.New("change feed already started")

// Backend is the API surface the store needs. apiclient.Client implements it.
type Backend interface {
	ListCart(ctx context.Context) ([]domain.CartLine, error)
	AddToCart(ctx context.Context, productID string) (*domain.CartLine, error)
	SetQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartLine, error)
	RemoveLine(ctx context.Context, lineID string) error
	// CartEvents streams change events; the channel closes when ctx ends.
	CartEvents(ctx context.Context) (<-chan domain.ChangeEvent, error)
	Checkout(ctx context.Context, method domain.PaymentMethod) (*domain.Payment, error)
	SignOut(ctx context.Context) error
}

// Store is the cart of one signed-in session. Create one per session and
// drop it after SignOut.
type Store struct {
	backend         Backend
	checkoutTimeout time.Duration
	retryMin        time.Duration
	retryMax        time.Duration
	logger          zerolog.Logger
	keys            *serializer

	mu         sync.Mutex
	lines      []domain.CartLine
	generation uint64 // bumped when the view is cleared
	synced     uint64 // bumped when a re-list replaces the view
	stopFeed   context.CancelFunc
	feedDone   chan struct{}
	watchers   map[int]chan domain.ChangeEvent
	nextWatch  int
}

type Option func(*Store)

func WithCheckoutTimeout(d time.Duration) Option {
	return func(s *Store) { s.checkoutTimeout = d }
}

// WithReconnectDelay bounds the backoff used when the change feed drops.
func WithReconnectDelay(min, max time.Duration) Option {
	return func(s *Store) { s.retryMin, s.retryMax = min, max }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l.With().Str("component", "storefront").Logger() }
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:         backend,
		checkoutTimeout: 30 * time.Second,
		retryMin:        500 * time.Millisecond,
		retryMax:        30 * time.Second,
		logger:          zerolog.Nop(),
		keys:            newSerializer(),
		watchers:        map[int]chan domain.ChangeEvent{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Lines returns a copy of the current view.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartTotal(s.lines)
}

// Refresh replaces the local view with the server's.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	lines, err := s.backend.ListCart(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.lines = lines
		s.synced++
	}
	return nil
}

// Add shows the extra unit immediately, then confirms it with the server.
func (s *Store) Add(ctx context.Context, productID string) (*domain.CartLine, error) {
	release, err := s.keys.acquire(ctx, "product:"+productID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	gen, synced := s.generation, s.synced
	tempID := ""
	if i := s.indexByProduct(productID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		tempID = "pending-" + uuid.NewString()
		s.lines = append(s.lines, domain.CartLine{ID: tempID, ProductID: productID, Quantity: 1, CreatedAt: time.Now()})
	}
	s.mu.Unlock()

	line, err := s.backend.AddToCart(ctx, productID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return line, err
	}
	i := s.indexByProduct(productID)
	if err != nil {
		// a re-list since the tentative change already shows server state
		if i >= 0 && s.synced == synced {
			if tempID != "" && s.lines[i].ID == tempID {
				s.removeAt(i)
			} else {
				s.lines[i].Quantity--
			}
		}
		return nil, err
	}
	if i >= 0 {
		s.lines[i] = *line
	} else {
		s.lines = append(s.lines, *line)
	}
	return line, nil
}

// SetQuantity applies quantity locally and confirms it with the server.
func (s *Store) SetQuantity(ctx context.Context, lineID string, quantity int) (*domain.CartLine, error) {
	if quantity < 1 {
		return nil, domain.NewValidationError("quantity must be at least 1")
	}
	release, err := s.keys.acquire(ctx, s.lineKey(lineID))
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	gen, synced := s.generation, s.synced
	prev := 0
	if i := s.indexByID(lineID); i >= 0 {
		prev = s.lines[i].Quantity
		s.lines[i].Quantity = quantity
	}
	s.mu.Unlock()

	line, err := s.backend.SetQuantity(ctx, lineID, quantity)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return line, err
	}
	i := s.indexByID(lineID)
	if err != nil {
		if i >= 0 && prev > 0 && s.synced == synced {
			s.lines[i].Quantity = prev
		}
		return nil, err
	}
	if i >= 0 {
		s.lines[i] = *line
	}
	return line, nil
}

// Remove hides the line immediately and restores it if the server refuses.
func (s *Store) Remove(ctx context.Context, lineID string) error {
	release, err := s.keys.acquire(ctx, s.lineKey(lineID))
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	gen, synced := s.generation, s.synced
	idx := s.indexByID(lineID)
	var removed *domain.CartLine
	if idx >= 0 {
		l := s.lines[idx]
		removed = &l
		s.removeAt(idx)
	}
	s.mu.Unlock()

	err = s.backend.RemoveLine(ctx, lineID)
	if err == nil || removed == nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen && s.synced == synced && s.indexByID(lineID) < 0 {
		if idx > len(s.lines) {
			idx = len(s.lines)
		}
		s.lines = append(s.lines[:idx], append([]domain.CartLine{*removed}, s.lines[idx:]...)...)
	}
	return err
}

// Start loads the cart and follows the server's change feed until ctx ends
// or SignOut is called. Every event triggers a full re-list before it is
// relayed to watchers. A dropped feed is re-opened with backoff.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopFeed != nil {
		s.mu.Unlock()
		return errAlreadyStarted
	}
	feedCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopFeed, s.feedDone = cancel, done
	s.mu.Unlock()

	events, err := s.backend.CartEvents(feedCtx)
	if err != nil {
		cancel()
		close(done)
		s.mu.Lock()
		s.stopFeed, s.feedDone = nil, nil
		s.mu.Unlock()
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("initial cart load")
	}

	go s.follow(feedCtx, events, done)
	return nil
}

func (s *Store) follow(ctx context.Context, events <-chan domain.ChangeEvent, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.feedDone == done {
			s.stopFeed()
			s.stopFeed, s.feedDone = nil, nil
		}
		s.mu.Unlock()
		close(done)
	}()

	for {
		for ev := range events {
			if ev.Kind == domain.ChangeSignOut {
				s.clear()
				s.relay(ev)
				return
			}
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("refresh after change event")
			}
			s.relay(ev)
		}
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Msg("change feed closed, reconnecting")

		var ok bool
		if events, ok = s.resubscribe(ctx); !ok {
			return
		}
		// changes made while disconnected were not streamed
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("refresh after reconnect")
		}
	}
}

func (s *Store) resubscribe(ctx context.Context) (<-chan domain.ChangeEvent, bool) {
	delay := s.retryMin
	for {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, false
		case <-t.C:
		}
		events, err := s.backend.CartEvents(ctx)
		if err == nil {
			return events, true
		}
		s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("reopen change feed")
		if delay *= 2; delay > s.retryMax {
			delay = s.retryMax
		}
	}
}

// Watch relays every processed change event. The cancel func stops it.
func (s *Store) Watch() (<-chan domain.ChangeEvent, func()) {
	ch := make(chan domain.ChangeEvent, 16)
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) relay(ev domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SignOut stops the feed and empties the view before it tells the backend,
// so nothing of this session remains visible whatever the outcome.
func (s *Store) SignOut(ctx context.Context) error {
	s.stop()
	s.clear()
	return s.backend.SignOut(ctx)
}

func (s *Store) stop() {
	s.mu.Lock()
	cancel, done := s.stopFeed, s.feedDone
	s.stopFeed, s.feedDone = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Store) clear() {
	s.mu.Lock()
	s.generation++
	s.lines = nil
	s.mu.Unlock()
}

// Checkout submits the cart. The request runs on its own timeout: if ctx ends
// first, ErrCheckoutAbandoned is returned and the request carries on.
func (s *Store) Checkout(ctx context.Context, method domain.PaymentMethod) (*domain.Payment, error) {
	type result struct {
		payment *domain.Payment
		err     error
	}
	out := make(chan result, 1)

	go func() {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.checkoutTimeout)
		defer cancel()
		p, err := s.backend.Checkout(reqCtx, method)
		if err == nil {
			s.clear()
			s.logger.Info().Str("payment_id", p.ID).Msg("checkout completed")
		}
		out <- result{payment: p, err: err}
	}()

	select {
	case r := <-out:
		return r.payment, r.err
	case <-ctx.Done():
		return nil, ErrCheckoutAbandoned
	}
}

func (s *Store) lineKey(lineID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexByID(lineID); i >= 0 {
		return "product:" + s.lines[i].ProductID
	}
	return "line:" + lineID
}

func (s *Store) indexByProduct(productID string) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) indexByID(lineID string) int {
	for i, l := range s.lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}
