// Package realtime carries row change notifications from the API to live
// subscribers. Events are hints: receivers re-read state instead of
// applying them.
package realtime

import (
	"context"

	"raices-verdes/internal/domain"
)

// Broker fans change events out to subscribers of a (collection, key) pair.
type Broker interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
	// Subscribe returns a feed of events for collection/key. The cancel func
	// unregisters and closes the channel; cancelling ctx has the same effect.
	Subscribe(ctx context.Context, collection, key string) (<-chan domain.ChangeEvent, func(), error)
	Close() error
}

// subscriberBuffer bounds each subscriber's queue. Events that do not fit are
// dropped for that subscriber only.
const subscriberBuffer = 16

func topic(collection, key string) string {
	return collection + ":" + key
}
