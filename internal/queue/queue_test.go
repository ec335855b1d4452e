package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	jobs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	want := Job{Type: TypeSyncSchedule, Role: "Модератор", RequestedAt: time.Now()}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-jobs:
		if got.Type != want.Type || got.Role != want.Role {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("job not delivered")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()

	if err := q.Publish(ctx, Job{Type: TypeSyncSchedule}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Queue full, cancelled context must not block.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.Publish(cancelled, Job{Type: TypeSyncSchedule}); err == nil {
		t.Fatal("publish to a full queue with a cancelled context must fail")
	}
}
