package storefront

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"raices-verdes/internal/domain"
)

const (
	DefaultPageSize = 12
	// MaxPageSize is the largest page GET /products serves. A larger request
	// would come back short and end the pager early.
	MaxPageSize = 48
)

// PageFetcher loads one catalog page. apiclient.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, filter domain.ProductFilter, offset, limit int) ([]domain.Product, error)
}

// Pager accumulates catalog pages for one filter, the way an infinite
// scrolling list consumes them.
type Pager struct {
	fetcher PageFetcher
	size    int
	group   singleflight.Group

	mu     sync.Mutex
	filter domain.ProductFilter
	epoch  uint64
	offset int
	done   bool
	seen   map[string]struct{}
	items  []domain.Product
}

func NewPager(fetcher PageFetcher, size int) *Pager {
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return &Pager{fetcher: fetcher, size: size, seen: map[string]struct{}{}}
}

// Next fetches the page at the current offset and returns the products it
// added. Products already seen are skipped. After a short page the pager is
// done and Next returns nothing without fetching. Concurrent calls for the
// same position share one request.
func (p *Pager) Next(ctx context.Context) ([]domain.Product, error) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return nil, nil
	}
	filter, epoch, offset := p.filter, p.epoch, p.offset
	p.mu.Unlock()

	key := strconv.FormatUint(epoch, 10) + ":" + strconv.Itoa(offset)
	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		page, err := p.fetcher.FetchPage(ctx, filter, offset, p.size)
		if err != nil {
			return nil, err
		}
		return p.merge(epoch, offset, page), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (p *Pager) merge(epoch uint64, offset int, page []domain.Product) []domain.Product {
	p.mu.Lock()
	defer p.mu.Unlock()

	added := []domain.Product{}
	// the filter changed while the request was in flight
	if p.epoch != epoch || p.offset != offset {
		return added
	}
	for _, prod := range page {
		if _, dup := p.seen[prod.ID]; dup {
			continue
		}
		p.seen[prod.ID] = struct{}{}
		p.items = append(p.items, prod)
		added = append(added, prod)
	}
	p.offset += len(page)
	if len(page) < p.size {
		p.done = true
	}
	return added
}

// SetFilter starts over when f differs from the current filter.
func (p *Pager) SetFilter(f domain.ProductFilter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.filter.Equal(f) {
		return
	}
	p.filter = f
	p.resetLocked()
}

// Reset drops everything loaded so far and keeps the filter.
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Pager) resetLocked() {
	p.epoch++
	p.offset = 0
	p.done = false
	p.seen = map[string]struct{}{}
	p.items = nil
}

func (p *Pager) Items() []domain.Product {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Product, len(p.items))
	copy(out, p.items)
	return out
}

func (p *Pager) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Pager) Filter() domain.ProductFilter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}
