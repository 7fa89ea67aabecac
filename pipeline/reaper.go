package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/romanqed/pipeteer"
	"github.com/romanqed/pipeteer/internal"
)

// Purger deletes stale rows from a single named queue table. It is
// satisfied by storage/sql.Cleaner; the reaper is agnostic to the
// storage backend beyond that one operation.
type Purger interface {
	Purge(ctx context.Context, table string, before time.Time) (int64, error)
}

// ReaperConfig configures a periodic sweep over a set of workflow
// queue tables.
type ReaperConfig struct {
	// Tables lists the storage-level table names to sweep, typically a
	// workflow's states/urls tables (pipeteer.JoinPath of Path{id,
	// StatesSuffix} and Path{id, UrlsSuffix} for every declared
	// workflow). Purge never touches a live reservation, so this is
	// safe to run against tables that are also being actively served.
	Tables []string

	// Interval is how often the sweep runs.
	Interval time.Duration

	// MaxAge is the minimum time a row must have been sitting
	// unreserved before it is eligible for deletion. Zero means no age
	// filter: anything unreserved is swept on every tick, which is only
	// safe if Tables holds nothing still being legitimately processed.
	MaxAge time.Duration
}

// Reaper periodically purges abandoned workflow instance state:
// Qstates/Qurls rows left behind by an instance whose caller never
// rendezvoused with its output (the instance itself is not otherwise
// reachable once its key is forgotten, so this is cooperative cleanup,
// not a correctness requirement of the replay protocol).
//
// Start fails while the sweep is already running; Stop waits for the
// in-flight sweep (if any) to finish or the given timeout to expire.
type Reaper struct {
	lifecycle internal.Lifecycle
	task      internal.TimerTask
	purger    Purger
	config    ReaperConfig
	log       *slog.Logger
}

// NewReaper builds a Reaper. log defaults to slog.Default() if nil.
func NewReaper(purger Purger, config ReaperConfig, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{purger: purger, config: config, log: log}
}

func (r *Reaper) sweep(ctx context.Context) {
	before := time.Now().Add(-r.config.MaxAge)
	var total int64
	for _, table := range r.config.Tables {
		n, err := r.purger.Purge(ctx, table, before)
		if err != nil {
			r.log.Error("reaper: purge failed", "table", table, "error", err)
			continue
		}
		total += n
	}
	r.log.Info("reaper: swept stale rows", "count", total)
}

// Start begins the periodic sweep. It returns internal.ErrDoubleStarted
// if already running.
func (r *Reaper) Start(ctx context.Context) error {
	if err := r.lifecycle.TryStart(); err != nil {
		return err
	}
	r.task.Start(ctx, r.sweep, r.config.Interval)
	return nil
}

// Stop ends the periodic sweep, waiting up to timeout for the current
// tick to finish.
func (r *Reaper) Stop(timeout time.Duration) error {
	return r.lifecycle.TryStop(timeout, r.task.Stop)
}

// Run adapts Reaper to the Process shape RunAll expects, so a Reaper
// can be dropped straight into a launcher's ArtifactTree alongside
// activity and workflow worker leaves.
func (r *Reaper) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	_ = r.Stop(10 * time.Second)
	return ctx.Err()
}

// ReaperTables computes the Purge table names for a workflow's states
// and urls queues, for building a ReaperConfig.Tables list.
func ReaperTables(workflowIDs ...string) []string {
	out := make([]string, 0, len(workflowIDs)*2)
	for _, id := range workflowIDs {
		out = append(out, pipeteer.JoinPath(pipeteer.Path{id, pipeteer.StatesSuffix}))
		out = append(out, pipeteer.JoinPath(pipeteer.Path{id, pipeteer.UrlsSuffix}))
	}
	return out
}

var _ Process = (*Reaper)(nil).Run
