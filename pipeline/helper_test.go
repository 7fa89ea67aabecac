package pipeline_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/romanqed/pipeteer"
	"github.com/romanqed/pipeteer/pipeline"
	gsql "github.com/romanqed/pipeteer/storage/sql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

func newTestContext(t *testing.T) *pipeline.Context {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := gsql.InitDB(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	backend := gsql.NewBackend(db, "file::memory:")
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return pipeline.NewContext(backend, log)
}

// waitFor polls cond every 10ms until it returns true or timeout elapses,
// failing the test on timeout.
func waitFor(t *testing.T, timeout time.Duration, cond func() (bool, error)) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ok, err := cond()
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func runInBackground(t *testing.T, ctx context.Context, p pipeline.Process) {
	t.Helper()
	go func() {
		if err := p(ctx); err != nil && ctx.Err() == nil {
			t.Logf("background process exited: %v", err)
		}
	}()
}
