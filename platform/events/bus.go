package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"loancrm_backend/platform/logger"
)

// InMemoryBus is a process-local Bus. Handlers for one event name run in
// subscription order, and asynchronously published events of one name are
// delivered in publish order.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup

	queueMu sync.Mutex
	queues  map[string]*eventQueue
}

type queuedEvent struct {
	ctx      context.Context
	event    Event
	handlers []Handler
}

// eventQueue holds pending events of one name. At most one drain goroutine
// runs per queue.
type eventQueue struct {
	pending  []queuedEvent
	draining bool
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
		queues:   make(map[string]*eventQueue),
	}
}

// Subscribe registers a handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish queues event for background dispatch. The request context is
// detached so handlers outlive the HTTP request that produced the event.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	name := event.EventName()
	handlers := b.snapshot(name)
	if len(handlers) == 0 {
		return
	}

	b.wg.Add(1)
	b.queueMu.Lock()
	q, ok := b.queues[name]
	if !ok {
		q = &eventQueue{}
		b.queues[name] = q
	}
	q.pending = append(q.pending, queuedEvent{
		ctx:      context.WithoutCancel(ctx),
		event:    event,
		handlers: handlers,
	})
	start := !q.draining
	q.draining = true
	b.queueMu.Unlock()

	if start {
		go b.drain(q)
	}
}

func (b *InMemoryBus) drain(q *eventQueue) {
	for {
		b.queueMu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			b.queueMu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending[0] = queuedEvent{}
		q.pending = q.pending[1:]
		b.queueMu.Unlock()

		if err := b.dispatch(next.ctx, next.event, next.handlers); err != nil {
			b.log.WithContext(next.ctx).Error("event handler failed",
				"event", next.event.EventName(),
				"error", err,
			)
		}
		b.wg.Done()
	}
}

// PublishSync dispatches event and returns the joined handler errors.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	return b.dispatch(ctx, event, b.snapshot(event.EventName()))
}

// Wait blocks until every asynchronously published event has been handled.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) snapshot(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[eventName]...)
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event, handlers []Handler) error {
	var errs []error
	for _, handler := range handlers {
		if err := safeHandle(ctx, handler, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeHandle(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %s panicked: %v", event.EventName(), r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ Bus = (*InMemoryBus)(nil)
