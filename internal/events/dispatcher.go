package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownEventType is returned when publishing a type outside the ticket lifecycle.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrPayloadMismatch is returned when the payload does not belong to the event type.
	ErrPayloadMismatch = errors.New("payload does not match event type")
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher routes ticket lifecycle events to their subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type ticketEventBus struct {
	mu     sync.RWMutex
	routes map[EventType][]EventHandler
	now    func() time.Time
}

// NewInMemoryDispatcher returns a synchronous in-process dispatcher.
func NewInMemoryDispatcher() Dispatcher {
	return &ticketEventBus{routes: map[EventType][]EventHandler{}, now: time.Now}
}

// Publish checks the event, stamps a missing id and timestamp, then calls every handler
// for its type in subscription order. Handler failures are joined.
func (b *ticketEventBus) Publish(ctx context.Context, event Event) error {
	if err := checkPayload(event); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now().UTC()
	}

	b.mu.RLock()
	handlers := b.routes[event.Type]
	b.mu.RUnlock()

	var errs []error
	for _, handle := range handlers {
		if err := handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (b *ticketEventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// Copy on write so Publish can iterate a snapshot without holding the lock.
	routes := make([]EventHandler, 0, len(b.routes[eventType])+1)
	b.routes[eventType] = append(append(routes, b.routes[eventType]...), handler)
}

func checkPayload(event Event) error {
	if event.Payload == nil {
		switch event.Type {
		case EventTicketEscalated, EventTicketLinked, EventTicketStatusChanged:
			return nil
		}
		return fmt.Errorf("%w: %q", ErrUnknownEventType, event.Type)
	}

	var ok bool
	switch event.Type {
	case EventTicketEscalated:
		_, ok = event.Payload.(TicketEscalatedPayload)
	case EventTicketLinked:
		_, ok = event.Payload.(TicketLinkedPayload)
	case EventTicketStatusChanged:
		_, ok = event.Payload.(TicketStatusChangedPayload)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, event.Type)
	}
	if !ok {
		return fmt.Errorf("%w: %s carries %T", ErrPayloadMismatch, event.Type, event.Payload)
	}
	return nil
}
