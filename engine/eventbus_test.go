package engine

import (
	"context"
	"testing"
	"time"

	"gimmefy/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventLevelUp, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewLevelUp("u", 2))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventLevelUp, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewLevelUp("u", 2))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	off := bus.Subscribe(core.EventPurchase, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewPurchase("u", core.KindTable, "oak", 150))
	off()
	bus.Publish(context.Background(), core.NewPurchase("u", core.KindTable, "oak", 150))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}
