package event

import "sync"

// Bus fans events out to subscribers synchronously, in subscription order.
// Handlers are copied under the lock before firing so a subscriber may
// subscribe or publish without deadlocking.
type Bus struct {
	mu       sync.RWMutex
	handlers []func(Event)
	events   []Event // for testing
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make([]func(Event), 0),
		events:   make([]Event, 0),
	}
}

// Publish sends an event to all subscribers.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	b.events = append(b.events, event)
	handlers := make([]func(Event), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// Subscribe registers a handler for all future events.
func (b *Bus) Subscribe(handler func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Events returns all published events (for testing).
func (b *Bus) Events() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]Event, len(b.events))
	copy(result, b.events)
	return result
}

// Clear drops all recorded events (for testing).
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make([]Event, 0)
}
