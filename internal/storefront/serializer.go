package storefront

import (
	"context"
	"sync"
)

// serializer runs critical sections for the same key one at a time, in the
// order acquire was called.
type serializer struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newSerializer() *serializer {
	return &serializer{tails: map[string]chan struct{}{}}
}

func (s *serializer) acquire(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	prev := s.tails[key]
	done := make(chan struct{})
	s.tails[key] = done
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		if s.tails[key] == done {
			delete(s.tails, key)
		}
		s.mu.Unlock()
		close(done)
	}

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		// keep the chain intact for the waiters queued behind us
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}
