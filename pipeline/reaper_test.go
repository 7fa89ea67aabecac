package pipeline_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/romanqed/pipeteer"
	"github.com/romanqed/pipeteer/pipeline"
	gsql "github.com/romanqed/pipeteer/storage/sql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

// TestReaperSweepsStaleWorkflowState grounds the reaper on a workflow's
// own states/urls tables, the way the teacher's CleanWorker sweeps a
// single job-status table on an interval.
func TestReaperSweepsStaleWorkflowState(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := gsql.InitDB(ctx, db); err != nil {
		t.Fatal(err)
	}
	backend := gsql.NewBackend(db, "file::memory:")

	tables := pipeline.ReaperTables("linear")

	rawStates, err := backend.ListQueue(ctx, pipeteer.Path{"linear", pipeteer.StatesSuffix})
	if err != nil {
		t.Fatal(err)
	}
	states := pipeteer.ListQueueOf[int](rawStates)
	if err := states.Push(ctx, "stale", []int{1, 2}); err != nil {
		t.Fatal(err)
	}

	cleaner := gsql.NewCleaner(db)
	reaper := pipeline.NewReaper(cleaner, pipeline.ReaperConfig{
		Tables:   tables,
		Interval: 10 * time.Millisecond,
		MaxAge:   -time.Hour, // everything already pushed counts as stale
	}, nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go reaper.Run(runCtx)

	waitFor(t, 2*time.Second, func() (bool, error) {
		has, err := states.Has(ctx, "stale")
		if err != nil {
			return false, err
		}
		return !has, nil
	})
}
