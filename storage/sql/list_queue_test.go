package sql_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/romanqed/pipeteer"
)

func newListQueue[T any](t *testing.T, path pipeteer.Path) pipeteer.ListQueue[T] {
	t.Helper()
	backend := newTestBackend(t)
	raw, err := backend.ListQueue(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	return pipeteer.ListQueueOf[T](raw)
}

func TestListQueueAppendCreates(t *testing.T) {
	ctx := context.Background()
	lq := newListQueue[int](t, pipeteer.Path{"states"})

	if err := lq.Append(ctx, "k", 1); err != nil {
		t.Fatal(err)
	}
	v, err := lq.Read(ctx, "k", pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 1 || v[0] != 1 {
		t.Fatalf("expected [1], got %v", v)
	}
}

func TestListQueueConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	lq := newListQueue[int](t, pipeteer.Path{"states2"})

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if err := lq.Append(ctx, "k", v); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	got, err := lq.Read(ctx, "k", pipeteer.None)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Fatalf("expected %d elements, got %d: %v", n, len(got), got)
	}
	sort.Ints(got)
	for i, v := range got {
		if v != i {
			t.Fatalf("expected each of 0..%d exactly once, got %v", n-1, got)
		}
	}
}
