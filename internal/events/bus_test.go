package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEmitDeliversToAllNotifiers(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	var seen []Event
	bus := &Bus{
		Now: func() time.Time { return now },
		Notifiers: []Notifier{
			NotifierFunc(func(_ context.Context, e Event) error {
				seen = append(seen, e)
				return nil
			}),
			NotifierFunc(func(_ context.Context, e Event) error {
				seen = append(seen, e)
				return nil
			}),
		},
	}
	id := uuid.New()
	if err := bus.Emit(context.Background(), TopicOrderCreated, id, map[string]string{"a": "b"}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(seen))
	}
	for _, e := range seen {
		if e.Topic != TopicOrderCreated || e.OrderID != id || !e.OccurredAt.Equal(now) {
			t.Fatalf("event = %+v", e)
		}
	}
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	failure := errors.New("sink down")
	delivered := false
	bus := &Bus{Notifiers: []Notifier{
		NotifierFunc(func(context.Context, Event) error { return failure }),
		NotifierFunc(func(context.Context, Event) error {
			delivered = true
			return nil
		}),
	}}
	err := bus.Emit(context.Background(), TopicOrderUpdated, uuid.New(), nil)
	if !errors.Is(err, failure) {
		t.Fatalf("err = %v, want wrapped %v", err, failure)
	}
	if !delivered {
		t.Fatal("later notifier skipped after earlier failure")
	}
}

func TestEmitRequiresTopic(t *testing.T) {
	bus := &Bus{}
	if err := bus.Emit(context.Background(), "  ", uuid.New(), nil); err == nil {
		t.Fatal("expected error for blank topic")
	}
}

func TestNilBusIsNoOp(t *testing.T) {
	var bus *Bus
	if err := bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), nil); err != nil {
		t.Fatal(err)
	}
}
