package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
)

type stubRepo struct {
	lines       map[string]*domain.CartLine
	byProduct   map[string]string
	addErr      error
	nextID      int
	lastClient  string
	listCalls   int
	removeCalls int
}

func newStubRepo() *stubRepo {
	return &stubRepo{lines: map[string]*domain.CartLine{}, byProduct: map[string]string{}}
}

func (s *stubRepo) ListByClient(_ context.Context, clientID string) ([]domain.CartLine, error) {
	s.listCalls++
	s.lastClient = clientID
	out := []domain.CartLine{}
	for _, l := range s.lines {
		if l.ClientID == clientID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *stubRepo) AddOne(_ context.Context, clientID, productID string) (*domain.CartLine, bool, error) {
	if s.addErr != nil {
		return nil, false, s.addErr
	}
	key := clientID + "/" + productID
	if id, ok := s.byProduct[key]; ok {
		s.lines[id].Quantity++
		cp := *s.lines[id]
		return &cp, false, nil
	}
	s.nextID++
	id := string(rune('a' + s.nextID))
	s.byProduct[key] = id
	s.lines[id] = &domain.CartLine{ID: id, ClientID: clientID, ProductID: productID, Quantity: 1}
	cp := *s.lines[id]
	return &cp, true, nil
}

func (s *stubRepo) SetQuantity(_ context.Context, clientID, lineID string, quantity int) (*domain.CartLine, error) {
	l, ok := s.lines[lineID]
	if !ok || l.ClientID != clientID {
		return nil, domain.ErrNotFound
	}
	l.Quantity = quantity
	cp := *l
	return &cp, nil
}

func (s *stubRepo) Remove(_ context.Context, clientID, lineID string) error {
	s.removeCalls++
	l, ok := s.lines[lineID]
	if !ok || l.ClientID != clientID {
		return domain.ErrNotFound
	}
	delete(s.lines, lineID)
	return nil
}

type stubFeed struct {
	published  []domain.ChangeEvent
	subscribed string
}

func (f *stubFeed) Publish(_ context.Context, ev domain.ChangeEvent) error {
	f.published = append(f.published, ev)
	return nil
}

func (f *stubFeed) Subscribe(_ context.Context, collection, key string) (<-chan domain.ChangeEvent, func(), error) {
	f.subscribed = collection + ":" + key
	ch := make(chan domain.ChangeEvent)
	return ch, func() { close(ch) }, nil
}

var ana = domain.Actor{Role: domain.RoleClient, ID: "ana"}

func TestAdd_RepeatedAddsIncrementOneLine(t *testing.T) {
	repo := newStubRepo()
	feed := &stubFeed{}
	svc := New(repo, feed, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.Add(context.Background(), ana, "mochila"); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	lines, _ := svc.List(context.Background(), ana)
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("expected one line with quantity 3, got %+v", lines)
	}
	if len(feed.published) != 3 {
		t.Fatalf("expected 3 events, got %d", len(feed.published))
	}
	if feed.published[0].Kind != domain.ChangeInsert || feed.published[2].Kind != domain.ChangeUpdate {
		t.Fatalf("unexpected kinds %+v", feed.published)
	}
	if feed.published[0].Key != "ana" || feed.published[0].Collection != domain.CollectionCartLines {
		t.Fatalf("event must be keyed by client, got %+v", feed.published[0])
	}
}

func TestAdd_RequiresShopperSession(t *testing.T) {
	svc := New(newStubRepo(), &stubFeed{}, nil)

	if _, err := svc.Add(context.Background(), domain.Anonymous(), "mochila"); !errors.Is(err, domain.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	producer := domain.Actor{Role: domain.RoleProducer, ID: "p1"}
	if _, err := svc.Add(context.Background(), producer, "mochila"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for producer, got %v", err)
	}
	if _, err := svc.Add(context.Background(), ana, "  "); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for empty product, got %v", err)
	}
}

func TestAdd_UnknownProductPublishesNothing(t *testing.T) {
	repo := newStubRepo()
	repo.addErr = domain.ErrNotFound
	feed := &stubFeed{}
	svc := New(repo, feed, nil)

	if _, err := svc.Add(context.Background(), ana, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(feed.published) != 0 {
		t.Fatalf("failed mutation must not publish, got %+v", feed.published)
	}
}

func TestSetQuantity_RejectsBelowOne(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, &stubFeed{}, nil)
	line, err := svc.Add(context.Background(), ana, "mochila")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	for _, q := range []int{0, -2} {
		if _, err := svc.SetQuantity(context.Background(), ana, line.ID, q); !domain.IsValidation(err) {
			t.Fatalf("quantity %d: expected validation error, got %v", q, err)
		}
	}
	if repo.lines[line.ID].Quantity != 1 {
		t.Fatalf("rejected update must not change the line")
	}

	updated, err := svc.SetQuantity(context.Background(), ana, line.ID, 500)
	if err != nil || updated.Quantity != 500 {
		t.Fatalf("no upper bound expected, got %+v err=%v", updated, err)
	}
}

func TestMutations_AreOwnerScoped(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, &stubFeed{}, nil)
	line, err := svc.Add(context.Background(), ana, "mochila")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	luis := domain.Actor{Role: domain.RoleClient, ID: "luis"}

	if _, err := svc.SetQuantity(context.Background(), luis, line.ID, 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Remove(context.Background(), luis, line.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Remove(context.Background(), ana, line.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := svc.Remove(context.Background(), domain.Anonymous(), line.ID); !errors.Is(err, domain.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestList_AnonymousIsEmpty(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, &stubFeed{}, nil)
	lines, err := svc.List(context.Background(), domain.Anonymous())
	if err != nil || len(lines) != 0 {
		t.Fatalf("expected empty cart, got %+v err=%v", lines, err)
	}
	if repo.listCalls != 0 {
		t.Fatalf("anonymous list must not hit the store")
	}
}

func TestSubscribe_KeyedByClient(t *testing.T) {
	feed := &stubFeed{}
	svc := New(newStubRepo(), feed, nil)

	if _, _, err := svc.Subscribe(context.Background(), domain.Anonymous()); !errors.Is(err, domain.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	_, cancel, err := svc.Subscribe(context.Background(), ana)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()
	if feed.subscribed != "cart_lines:ana" {
		t.Fatalf("unexpected subscription %q", feed.subscribed)
	}
}

func TestTotal(t *testing.T) {
	svc := New(newStubRepo(), nil, nil)
	lines := []domain.CartLine{
		{Quantity: 2, Product: domain.ProductSnapshot{Price: decimal.RequireFromString("10")}},
		{Quantity: 1, Product: domain.ProductSnapshot{Price: decimal.RequireFromString("5")}},
	}
	if got := svc.Total(lines); !got.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("expected 25, got %s", got)
	}
	if got := svc.Total(nil); !got.IsZero() {
		t.Fatalf("expected 0 for empty cart, got %s", got)
	}
}

func TestNotifyProductChanged_KeyedByClient(t *testing.T) {
	feed := &stubFeed{}
	svc := New(newStubRepo(), feed, nil)

	svc.NotifyProductChanged(context.Background(), "ana", domain.ChangeUpdate)
	svc.NotifyProductChanged(context.Background(), "luis", domain.ChangeDelete)

	if len(feed.published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(feed.published))
	}
	if feed.published[0].Key != "ana" || feed.published[0].Kind != domain.ChangeUpdate {
		t.Fatalf("unexpected first event %+v", feed.published[0])
	}
	if feed.published[1].Key != "luis" || feed.published[1].Kind != domain.ChangeDelete {
		t.Fatalf("unexpected second event %+v", feed.published[1])
	}
}
