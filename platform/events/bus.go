// Package events provides the in-memory event bus implementation.
package events

import (
	"context"
	"fmt"
	"sync"

	"barberosa_backend/platform/logger"
)

// InMemoryBus is a process-local event bus. Publish dispatches each handler
// on its own goroutine; the published event is detached work whose outcome
// is logged, never joined.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Compile-time check that InMemoryBus implements Bus.
var _ Bus = (*InMemoryBus)(nil)

// Subscribe registers a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all subscribed handlers asynchronously.
// Handler errors and panics are logged and swallowed; the publisher's
// critical path is never blocked or failed by a subscriber.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	subscribed := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	// Detach from the request context so in-flight handlers survive the
	// HTTP response being written.
	detached := context.WithoutCancel(ctx)

	for _, handler := range subscribed {
		h := handler
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.dispatch(detached, event, h)
		}()
	}
}

// PublishSync dispatches the event and waits for all handlers, returning the
// first handler error encountered.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	subscribed := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range subscribed {
		if err := b.dispatch(ctx, event, handler); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Wait blocks until all asynchronously dispatched handlers have finished.
// Used during graceful shutdown and in tests.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
			b.log.Error("event_handler_panic", "event", event.EventName(), "panic", fmt.Sprint(r))
		}
	}()

	if err := handler.Handle(ctx, event); err != nil {
		b.log.Error("event_handler_error", "event", event.EventName(), "error", err.Error())
		return err
	}
	return nil
}
