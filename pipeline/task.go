package pipeline

import (
	"context"

	"github.com/romanqed/pipeteer"
)

// TaskFunc builds a task's artifact (an HTTP server, a CLI tool, a
// webhook handler) given direct read/write access to its queues. Unlike
// Activity, a Task's queues carry bare values, not Routed[A]: a task is
// a standalone producer/consumer, never a target of
// WorkflowContext.Call.
type TaskFunc[A, B, Artifact any] func(ctx context.Context, qin pipeteer.ReadQueue[A], qout pipeteer.WriteQueue[B], pctx *Context) Artifact

// Task is an opaque user-supplied artifact parameterised over its own
// input/output queues, per the spec's Task component. Task.Run just
// returns the artifact; launching it (starting an HTTP server, for
// example) is the caller's responsibility, typically via a custom
// Executor passed to RunAll.
type Task[A, B, Artifact any] struct {
	id   string
	call TaskFunc[A, B, Artifact]
}

// NewTask builds a Task. id names both its input table and the child
// Context (logger scope) passed to call.
func NewTask[A, B, Artifact any](id string, call TaskFunc[A, B, Artifact]) *Task[A, B, Artifact] {
	return &Task[A, B, Artifact]{id: id, call: call}
}

func (t *Task[A, B, Artifact]) ID() string   { return t.id }
func (t *Task[A, B, Artifact]) Name() string { return t.id }

func (t *Task[A, B, Artifact]) input(ctx context.Context, pctx *Context) (pipeteer.Queue[A], error) {
	raw, err := pctx.Backend.Queue(ctx, pipeteer.Path{t.id})
	if err != nil {
		return nil, err
	}
	return pipeteer.QueueOf[A](raw), nil
}

// Run resolves the task's queues and invokes call, returning its
// artifact directly (no tree wrapping: a Task contributes one opaque
// artifact, not a set of named worker loops).
func (t *Task[A, B, Artifact]) Run(ctx context.Context, qout pipeteer.WriteQueue[B], pctx *Context) (Artifact, error) {
	var zero Artifact
	qin, err := t.input(ctx, pctx)
	if err != nil {
		return zero, err
	}
	return t.call(ctx, qin, qout, pctx.Child(t.id)), nil
}
