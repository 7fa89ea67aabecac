package sql_test

import (
	"context"
	"testing"
	"time"

	"github.com/romanqed/pipeteer"
)

func newQueue[T any](t *testing.T, path pipeteer.Path) pipeteer.Queue[T] {
	t.Helper()
	backend := newTestBackend(t)
	raw, err := backend.Queue(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	return pipeteer.QueueOf[T](raw)
}

func TestPushPopHas(t *testing.T) {
	ctx := context.Background()
	q := newQueue[int](t, pipeteer.Path{"t1"})

	if err := q.Push(ctx, "a", 1); err != nil {
		t.Fatal(err)
	}
	if err := q.Pop(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	has, err := q.Has(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if has {
		t.Fatal("expected item to be gone after pop")
	}
}

func TestPushRead(t *testing.T) {
	ctx := context.Background()
	q := newQueue[string](t, pipeteer.Path{"t2"})

	if err := q.Push(ctx, "k", "hello"); err != nil {
		t.Fatal(err)
	}
	v, err := q.Read(ctx, "k", pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if v != "hello" {
		t.Fatalf("expected hello, got %q", v)
	}
}

func TestPushReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	q := newQueue[int](t, pipeteer.Path{"t3"})

	if err := q.Push(ctx, "k", 1); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(ctx, "k", 2); err != nil {
		t.Fatal(err)
	}
	v, err := q.Read(ctx, "k", pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Fatalf("expected replace semantics, got %d", v)
	}
}

func TestReservationExpiry(t *testing.T) {
	ctx := context.Background()
	q := newQueue[int](t, pipeteer.Path{"t4"})

	if err := q.Push(ctx, "k", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Read(ctx, "k", pipeteer.Reservation(80*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Read(ctx, "k", pipeteer.None); !pipeteer.IsNotFound(err) {
		t.Fatalf("expected reserved item hidden, got err=%v", err)
	}
	time.Sleep(120 * time.Millisecond)
	if _, err := q.Read(ctx, "k", pipeteer.None); err != nil {
		t.Fatalf("expected item visible again after lease expiry: %v", err)
	}
}

func TestWaitAnyBlocksUntilPush(t *testing.T) {
	ctx := context.Background()
	q := newQueue[int](t, pipeteer.Path{"t5"})

	done := make(chan struct{})
	var gotKey string
	var gotVal int
	go func() {
		defer close(done)
		gotKey, gotVal, _ = q.WaitAny(ctx, pipeteer.None)
	}()

	time.Sleep(50 * time.Millisecond)
	if err := q.Push(ctx, "k", 42); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("WaitAny did not observe the push")
	}
	if gotKey != "k" || gotVal != 42 {
		t.Fatalf("got (%q, %d), want (k, 42)", gotKey, gotVal)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	q := newQueue[int](t, pipeteer.Path{"t6"})

	for i, k := range []string{"a", "b", "c"} {
		if err := q.Push(ctx, k, i); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	keys, err := q.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty queue after Clear, got %v", keys)
	}
}
