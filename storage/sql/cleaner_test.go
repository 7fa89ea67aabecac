package sql_test

import (
	"context"
	"testing"
	"time"

	"github.com/romanqed/pipeteer"
	gsql "github.com/romanqed/pipeteer/storage/sql"
)

func TestCleanerPurgesOnlyStaleVisibleRows(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend(t)
	raw, err := backend.Queue(ctx, pipeteer.Path{"stale"})
	if err != nil {
		t.Fatal(err)
	}
	if err := raw.Push(ctx, "old", []byte(`1`)); err != nil {
		t.Fatal(err)
	}
	if err := raw.Push(ctx, "reserved", []byte(`2`)); err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Read(ctx, "reserved", pipeteer.Reservation(time.Hour)); err != nil {
		t.Fatal(err)
	}

	cleaner := gsql.NewCleaner(backend.DB())
	n, err := cleaner.Purge(ctx, "stale", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected to purge exactly the unreserved row, got %d", n)
	}

	if has, _ := raw.Has(ctx, "old"); has {
		t.Fatal("expected stale row to be gone")
	}
}
