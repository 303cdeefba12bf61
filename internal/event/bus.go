package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const subscriberBuffer = 100

type subscriber struct {
	ch     chan Event
	filter Filter
}

type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]subscriber
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{subscribers: make(map[string]subscriber)}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (b *InMemoryBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if sub.filter != nil && !sub.filter(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			slog.Warn("event dropped for slow subscriber", "subscriber", id, "type", e.Type, "user_id", e.UserID)
		}
	}
}

// Subscribe registers a buffered channel. The returned func closes it and is
// safe to call more than once.
func (b *InMemoryBus) Subscribe(filter Filter) (<-chan Event, func()) {
	id := uuid.NewString()
	sub := subscriber{ch: make(chan Event, subscriberBuffer), filter: filter}

	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			close(sub.ch)
			b.mu.Unlock()
		})
	}
}

func (b *InMemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
