package pipeline

import (
	"context"

	"github.com/romanqed/pipeteer"
)

// runnableTask is the part of Task[A, B, Artifact] that MultiTask
// needs: any sub-task sharing B and Artifact qualifies, including
// another MultiTask of the same shape.
type runnableTask[B, Artifact any] interface {
	Run(ctx context.Context, qout pipeteer.WriteQueue[B], pctx *Context) (Artifact, error)
}

// MultiTask merges N tasks' artifacts into one, for example mounting
// several queue-backed HTTP handlers under one router. Every sub-task
// runs against the same Qout; merge combines their artifacts into a
// single Artifact2.
type MultiTask[B, Artifact, Artifact2 any] struct {
	id    string
	tasks []runnableTask[B, Artifact]
	merge func(artifacts []Artifact) Artifact2
}

// NewMultiTask builds a MultiTask from tasks, merged by merge.
func NewMultiTask[B, Artifact, Artifact2 any](id string, tasks []runnableTask[B, Artifact], merge func([]Artifact) Artifact2) *MultiTask[B, Artifact, Artifact2] {
	return &MultiTask[B, Artifact, Artifact2]{id: id, tasks: tasks, merge: merge}
}

func (m *MultiTask[B, Artifact, Artifact2]) ID() string   { return m.id }
func (m *MultiTask[B, Artifact, Artifact2]) Name() string { return m.id }

// Run runs every sub-task against qout and merges their artifacts.
func (m *MultiTask[B, Artifact, Artifact2]) Run(ctx context.Context, qout pipeteer.WriteQueue[B], pctx *Context) (Artifact2, error) {
	var zero Artifact2
	artifacts := make([]Artifact, 0, len(m.tasks))
	child := pctx.Child(m.id)
	for _, t := range m.tasks {
		artifact, err := t.Run(ctx, qout, child)
		if err != nil {
			return zero, err
		}
		artifacts = append(artifacts, artifact)
	}
	return m.merge(artifacts), nil
}
