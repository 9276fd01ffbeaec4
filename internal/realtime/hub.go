package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"raices-verdes/internal/domain"
)

// Hub is an in-process Broker, used when no Redis address is configured.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
	logger zerolog.Logger
}

type subscription struct {
	ch   chan domain.ChangeEvent
	once sync.Once
}

func NewHub(logger *zerolog.Logger) *Hub {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "realtime_hub").Logger()
	}
	return &Hub{subs: map[string]map[*subscription]struct{}{}, logger: l}
}

func (h *Hub) Publish(_ context.Context, ev domain.ChangeEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	t := topic(ev.Collection, ev.Key)
	for s := range h.subs[t] {
		select {
		case s.ch <- ev:
		default:
			h.logger.Warn().Str("topic", t).Str("kind", string(ev.Kind)).Msg("subscriber full, event dropped")
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, collection, key string) (<-chan domain.ChangeEvent, func(), error) {
	t := topic(collection, key)
	s := &subscription{ch: make(chan domain.ChangeEvent, subscriberBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}, nil
	}
	if h.subs[t] == nil {
		h.subs[t] = map[*subscription]struct{}{}
	}
	h.subs[t][s] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	cancel := func() {
		s.once.Do(func() {
			close(done)
			h.mu.Lock()
			delete(h.subs[t], s)
			if len(h.subs[t]) == 0 {
				delete(h.subs, t)
			}
			h.mu.Unlock()
			close(s.ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return s.ch, cancel, nil
}

// Subscribers reports how many live subscriptions a topic has.
func (h *Hub) Subscribers(collection, key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic(collection, key)])
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	var all []*subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.subs = map[string]map[*subscription]struct{}{}
	h.mu.Unlock()

	for _, s := range all {
		s.once.Do(func() { close(s.ch) })
	}
	return nil
}
