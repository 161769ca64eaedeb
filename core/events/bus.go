// Package events provides an in-process publish/subscribe bus. Table
// mutations publish "<module>.<action>" events; caches of related records
// subscribe to them.
package events

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Record actions published after a successful backend write.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Event represents a published event.
type Event struct {
	// Name is "<module>.<action>", e.g. "inventory.updated".
	Name string

	// Module is the catalog key of the module whose records changed.
	Module string

	// Action is one of Created, Updated, Deleted.
	Action string

	// ID identifies the affected record when known.
	ID string

	// Data is the backend's copy of the record, if it returned one.
	Data map[string]any
}

// NewEvent builds an event for a module action.
func NewEvent(module, action, id string, data map[string]any) Event {
	return Event{
		Name:   Name(module, action),
		Module: module,
		Action: action,
		ID:     id,
		Data:   data,
	}
}

// Name joins a module key and an action into an event name.
func Name(module, action string) string {
	return module + "." + action
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "inventory.created" - exact match
//   - "inventory.*" - all inventory events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish calls every matching handler synchronously, in registration
// order: exact subscribers, then module wildcard, then global wildcard.
// Handler errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("id", event.ID).
		Int("handlers", len(matched)).
		Msg("event published")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// match snapshots the handlers so none run under the lock; a handler may
// subscribe or publish itself.
func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)
	if module, _, ok := strings.Cut(name, "."); ok && module != "" {
		matched = append(matched, b.handlers[module+".*"]...)
	} else if name != "" && name != "*" {
		matched = append(matched, b.handlers[name+".*"]...)
	}
	if name != "*" {
		matched = append(matched, b.handlers["*"]...)
	}
	return matched
}
