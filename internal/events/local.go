package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LocalBus fans events out to subscribers in the same process. It is used
// when no Redis is configured.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
	log  *zap.Logger
}

func NewLocalBus(log *zap.Logger) *LocalBus {
	return &LocalBus{subs: make(map[string][]chan Event), log: log}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (b *LocalBus) Publish(_ context.Context, stream string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[stream] {
		select {
		case ch <- event:
		default:
			b.log.Warn("event dropped, subscriber is slow", zap.String("stream", stream), zap.String("type", event.Type))
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, stream string, handler func(Event)) error {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subs[stream] = append(b.subs[stream], ch)
	b.mu.Unlock()

	go func() {
		defer b.remove(stream, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-ch:
				handler(e)
			}
		}
	}()
	return nil
}

func (b *LocalBus) remove(stream string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[stream]
	for i, c := range subs {
		if c == ch {
			b.subs[stream] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
