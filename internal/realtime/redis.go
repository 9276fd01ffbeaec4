package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"raices-verdes/internal/domain"
)

// RedisBroker shares the change feed between API replicas over Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

func NewRedisBroker(client *redis.Client, logger *zerolog.Logger) *RedisBroker {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "realtime_redis").Logger()
	}
	return &RedisBroker{client: client, prefix: "raices:changes:", logger: l}
}

func (b *RedisBroker) channel(collection, key string) string {
	return b.prefix + topic(collection, key)
}

func (b *RedisBroker) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(ev.Collection, ev.Key), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, collection, key string) (<-chan domain.ChangeEvent, func(), error) {
	ps := b.client.Subscribe(ctx, b.channel(collection, key))
	// wait for the subscription to be confirmed so no event published after
	// Subscribe returns can be missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan domain.ChangeEvent, subscriberBuffer)
	done := make(chan struct{})
	stopped := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(done) })
		<-stopped
	}

	go func() {
		defer close(stopped)
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("discarding malformed change event")
					continue
				}
				select {
				case out <- ev:
				default:
					b.logger.Warn().Str("channel", msg.Channel).Msg("subscriber full, event dropped")
				}
			}
		}
	}()
	return out, cancel, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
