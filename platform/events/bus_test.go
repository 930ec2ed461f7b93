package events

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"loancrm_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncRunsHandlersInOrder(t *testing.T) {
	bus := NewInMemoryBus(logger.NewWithWriter("test", io.Discard))
	var order []int
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 1)
		return nil
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 2)
		return nil
	}))

	if err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected handlers to run in order, got %v", order)
	}
}

func TestPublishSyncJoinsErrorsAndRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.NewWithWriter("test", io.Discard))
	boom := errors.New("boom")
	var ran atomic.Int32
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		ran.Add(1)
		return boom
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		ran.Add(1)
		panic("handler exploded")
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if ran.Load() != 2 {
		t.Fatalf("expected both handlers to run, got %d", ran.Load())
	}
}

func TestPublishOutlivesCancelledContext(t *testing.T) {
	bus := NewInMemoryBus(logger.NewWithWriter("test", io.Discard))
	var sawCancel atomic.Bool
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, _ Event) error {
		sawCancel.Store(ctx.Err() != nil)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if sawCancel.Load() {
		t.Fatal("expected handler context to be detached from the cancelled request")
	}
}

func TestPublishDeliversSameNameInOrder(t *testing.T) {
	bus := NewInMemoryBus(logger.NewWithWriter("test", io.Discard))
	var order []int
	bus.Subscribe("test.seq", HandlerFunc(func(_ context.Context, event Event) error {
		order = append(order, event.(seqEvent).n)
		return nil
	}))

	for i := 0; i < 200; i++ {
		bus.Publish(context.Background(), seqEvent{BaseEvent: NewBaseEvent(), n: i})
	}
	bus.Wait()

	if len(order) != 200 {
		t.Fatalf("expected 200 deliveries, got %d", len(order))
	}
	for i, n := range order {
		if n != i {
			t.Fatalf("delivery %d carried event %d", i, n)
		}
	}
}

type seqEvent struct {
	BaseEvent
	n int
}

func (seqEvent) EventName() string { return "test.seq" }
