package events

import (
	"log/slog"
	"sync"
)

// Handler processes an event. A returned error is logged and dispatch
// continues with the remaining handlers.
type Handler func(Event) error

// Bus is a synchronous in-process event bus. Subscribers are invoked
// in registration order on the publisher's goroutine; handlers that
// need async processing should hand off to their own channel.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish dispatches an event to all handlers registered for its type.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(e); err != nil {
			slog.Error("event handler failed: " + err.Error())
		}
	}
}
