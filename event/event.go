package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EventSchemaVersion is the current event schema version
const EventSchemaVersion = "1.0"

// Type represents the type of an event
type Type string

// Record event types
const (
	// RecordChanged signals that a record was mutated and cached views of it are stale
	RecordChanged Type = "record.changed"
)

// Event represents a change notification keyed by record
type Event struct {
	Version    string    `json:"version"`
	Type       Type      `json:"type"`
	RecordID   string    `json:"record_id"`
	Source     string    `json:"source,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewRecordChangedEvent creates a record changed event
func NewRecordChangedEvent(recordID, source string) Event {
	return Event{
		Version:    EventSchemaVersion,
		Type:       RecordChanged,
		RecordID:   recordID,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe registers handler and returns a func that removes it again
	Subscribe(eventType Type, handler Handler) (unsubscribe func())
}

type subscription struct {
	id      uint64
	handler Handler
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[Type][]subscription
	nextID   uint64
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]subscription),
	}
}

// Publish delivers the event synchronously to every current subscriber of its type
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("encountered %d errors while handling event %s: %v", len(errs), event.Type, errs)
	}
	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventType, id) })
	}
}

func (b *MemoryBus) remove(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[eventType]) == 0 {
		delete(b.handlers, eventType)
	}
}

// SubscriberCount returns the number of handlers registered for eventType
func (b *MemoryBus) SubscriberCount(eventType Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
