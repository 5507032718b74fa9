// Package bus fans out domain events produced by the realtime client to
// in-process listeners, and optionally bridges them onto NATS subjects for
// server-side consumers.
package bus

import (
	"sync"

	"github.com/murmur/chat-sdk/chat"
)

// Handler consumes a single domain event. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(ev chat.Event)

// Bus is a goroutine-safe in-process fan-out of chat events. It satisfies
// the realtime client's sink interface.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Listen registers a handler for every published event. Handlers cannot be
// removed; create a new Bus for a new listener set.
func (b *Bus) Listen(h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers an event to every registered handler in registration
// order.
func (b *Bus) Publish(ev chat.Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
