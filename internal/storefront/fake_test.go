package storefront

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

var errBackend = errors.New("backend refused")

// fakeBackend is an in-memory cart server.
type fakeBackend struct {
	mu        sync.Mutex
	lines     []domain.CartLine
	nextID    int
	failNext  error
	listCalls int
	signOuts  int
	calls     []string

	addGate      chan struct{}
	checkoutGate chan struct{}
	checkoutCtx  context.Context
	events       chan domain.ChangeEvent
	streamDrop   chan struct{}
	subscribes   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{events: make(chan domain.ChangeEvent, 8)}
}

func (f *fakeBackend) take() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeBackend) ListCart(_ context.Context) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]domain.CartLine, len(f.lines))
	copy(out, f.lines)
	return out, nil
}

func (f *fakeBackend) AddToCart(_ context.Context, productID string) (*domain.CartLine, error) {
	if f.addGate != nil {
		<-f.addGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "add:"+productID)
	if err := f.take(); err != nil {
		return nil, err
	}
	for i := range f.lines {
		if f.lines[i].ProductID == productID {
			f.lines[i].Quantity++
			l := f.lines[i]
			return &l, nil
		}
	}
	f.nextID++
	l := domain.CartLine{
		ID:        "line-" + strconv.Itoa(f.nextID),
		ProductID: productID,
		Quantity:  1,
		Product:   domain.ProductSnapshot{Name: productID, Price: decimal.NewFromInt(10), Stock: 5},
	}
	f.lines = append(f.lines, l)
	return &l, nil
}

func (f *fakeBackend) SetQuantity(_ context.Context, lineID string, quantity int) (*domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "qty:"+lineID+":"+strconv.Itoa(quantity))
	if err := f.take(); err != nil {
		return nil, err
	}
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			f.lines[i].Quantity = quantity
			l := f.lines[i]
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBackend) RemoveLine(_ context.Context, lineID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.take(); err != nil {
		return err
	}
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeBackend) CartEvents(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	drop := make(chan struct{})
	f.mu.Lock()
	f.subscribes++
	f.streamDrop = drop
	f.mu.Unlock()

	out := make(chan domain.ChangeEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-drop:
				return
			case ev := <-f.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeBackend) Checkout(ctx context.Context, method domain.PaymentMethod) (*domain.Payment, error) {
	f.mu.Lock()
	f.checkoutCtx = ctx
	gate := f.checkoutGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.take(); err != nil {
		return nil, err
	}
	total := domain.CartTotal(f.lines)
	f.lines = nil
	return &domain.Payment{ID: "pay-1", Total: total, Method: method, InvoiceNumber: 1}, nil
}

func (f *fakeBackend) SignOut(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return f.take()
}

// dropStream ends the current change stream as a lost connection would.
func (f *fakeBackend) dropStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamDrop != nil {
		close(f.streamDrop)
		f.streamDrop = nil
	}
}

func (f *fakeBackend) subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

func (f *fakeBackend) serverLines() []domain.CartLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CartLine, len(f.lines))
	copy(out, f.lines)
	return out
}
