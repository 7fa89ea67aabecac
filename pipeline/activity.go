package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/romanqed/pipeteer"
	"github.com/romanqed/pipeteer/internal"
)

// ActivityFunc computes B from A. pctx carries the activity's own
// prefixed logger; ctx should be honored for cancellation by any
// blocking call the function makes.
type ActivityFunc[A, B any] func(ctx context.Context, pctx *Context, x A) (B, error)

// ActivityConfig configures an Activity's worker loop.
type ActivityConfig struct {
	// Reserve is the lease duration applied to each item while it is
	// being processed. Defaults to 2 minutes, the spec's default for
	// activities.
	Reserve pipeteer.Reservation

	// Concurrency is how many items the worker processes at once.
	// Defaults to 1.
	Concurrency int

	// Queue is the input buffer between the polling goroutine and the
	// worker pool. Defaults to Concurrency.
	Queue int
}

func (c ActivityConfig) withDefaults() ActivityConfig {
	if c.Reserve <= 0 {
		c.Reserve = pipeteer.Reservation(2 * time.Minute)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Queue <= 0 {
		c.Queue = c.Concurrency
	}
	return c
}

// Activity wraps a user function A -> B run by a polling worker: pop
// the next reserved item, compute, push the result to wherever the
// caller asked for it, pop the input, all inside one transaction. A
// failing call leaves the item reserved; the lease expires and another
// worker retries it, per the spec's at-least-once model.
type Activity[A, B any] struct {
	id     string
	call   ActivityFunc[A, B]
	config ActivityConfig
}

// NewActivity builds an Activity. id must be unique among the
// pipelines sharing a backend; it names the activity's input table.
func NewActivity[A, B any](id string, call ActivityFunc[A, B], config ActivityConfig) *Activity[A, B] {
	return &Activity[A, B]{id: id, call: call, config: config.withDefaults()}
}

func (a *Activity[A, B]) ID() string   { return a.id }
func (a *Activity[A, B]) Name() string { return a.id }

func (a *Activity[A, B]) queue(ctx context.Context, pctx *Context) (pipeteer.Queue[pipeteer.Routed[A]], error) {
	raw, err := pctx.Backend.Queue(ctx, pipeteer.Path{a.id})
	if err != nil {
		return nil, err
	}
	return pipeteer.QueueOf[pipeteer.Routed[A]](raw), nil
}

// Input returns the activity's routed input queue: callers (typically
// a workflow's Call) push a Routed[A] naming the queue the activity
// should post its result to.
func (a *Activity[A, B]) Input(ctx context.Context, pctx *Context) (pipeteer.WriteQueue[pipeteer.Routed[A]], error) {
	return a.queue(ctx, pctx)
}

// Run builds the activity's worker loop as a single-leaf ArtifactTree
// keyed by the activity's id.
func (a *Activity[A, B]) Run(ctx context.Context, pctx *Context) (ArtifactTree, error) {
	qin, err := a.queue(ctx, pctx)
	if err != nil {
		return nil, err
	}
	worker := &activityWorker[A, B]{
		id:     a.id,
		qin:    qin,
		call:   a.call,
		config: a.config,
		pctx:   pctx.Child(a.id),
	}
	return ArtifactTree{a.id: Process(worker.run)}, nil
}

type activityWorker[A, B any] struct {
	id     string
	qin    pipeteer.Queue[pipeteer.Routed[A]]
	call   ActivityFunc[A, B]
	config ActivityConfig
	pctx   *Context
}

func (w *activityWorker[A, B]) run(ctx context.Context) error {
	log := w.pctx.Log
	pool := internal.NewWorkerPool[pipeteer.Item[pipeteer.Routed[A]]](w.config.Concurrency, w.config.Queue, log)
	pool.Start(ctx, func(ctx context.Context, item pipeteer.Item[pipeteer.Routed[A]]) {
		w.handle(ctx, item.Key, item.Value)
	})
	defer func() { <-pool.Stop() }()

	for {
		key, routed, err := w.qin.WaitAny(ctx, w.config.Reserve)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("wait_any failed", "error", err)
			continue
		}
		if !pool.Push(pipeteer.Item[pipeteer.Routed[A]]{Key: key, Value: routed}) {
			return ctx.Err()
		}
	}
}

func (w *activityWorker[A, B]) handle(ctx context.Context, key string, routed pipeteer.Routed[A]) {
	log := w.pctx.Log
	y, err := w.call(ctx, w.pctx, routed.Value)
	if err != nil {
		log.Error("activity call failed, item will retry after lease expiry", "key", key, "error", err)
		return
	}
	var foreignPushed bool
	err = w.pctx.Backend.Transact(ctx, func(ctx context.Context, tx pipeteer.Backend) error {
		qin, err := tx.Queue(ctx, pipeteer.Path{w.id})
		if err != nil {
			return err
		}
		qout, foreign, err := w.pctx.resolveRouted(ctx, tx, routed.URL)
		if err != nil {
			return err
		}
		if err := pipeteer.QueueOf[B](qout).Push(ctx, key, y); err != nil {
			return err
		}
		foreignPushed = foreign
		return qin.Pop(ctx, key)
	})
	if err != nil {
		if foreignPushed {
			err = fmt.Errorf("%w: %w", pipeteer.ErrPartialCommit, err)
		}
		log.Error("commit failed, item will retry after lease expiry", "key", key, "error", err)
	}
}

// resolveRouted resolves url, preferring tx (so the push participates
// in the activity's own commit) when url names a queue on tx's own
// storage, and falling back to the context's full QueueAt (which may
// cross storages, and so is not covered by the transaction) otherwise.
// foreign reports whether the second, uncovered path was taken: callers
// use it to tell a plain commit failure from one where a cross-storage
// push already took effect before the own-storage side failed.
func (c *Context) resolveRouted(ctx context.Context, tx pipeteer.Backend, url string) (raw pipeteer.RawQueue, foreign bool, err error) {
	if _, ok := pipeteer.SplitLocalURL(url); ok {
		if q, err := tx.QueueAt(ctx, url); err == nil {
			return q, false, nil
		}
	}
	q, err := c.QueueAt(ctx, url)
	return q, true, err
}
