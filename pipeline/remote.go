package pipeline

import (
	"context"

	"github.com/romanqed/pipeteer"
	"github.com/romanqed/pipeteer/queue/httpqueue"
)

// Remote is a reference to a pipeline hosted in a different process or
// backend, known only by its input URL: calling it (via
// WorkflowContext.Call) requires no knowledge of how that pipeline is
// implemented, only where its input queue lives. It implements
// Inputtable and nothing else; there is no local worker loop to run.
type Remote[A, B any] struct {
	id  string
	url string
}

// NewRemote builds a Remote pointing at url, the base address of the
// target pipeline's HTTP queue server.
func NewRemote[A, B any](id string, url string) *Remote[A, B] {
	return &Remote[A, B]{id: id, url: url}
}

func (r *Remote[A, B]) ID() string { return r.id }

// Input resolves the remote queue via an httpqueue.Client, ignoring
// pctx.Backend entirely: a Remote always crosses process boundaries.
func (r *Remote[A, B]) Input(ctx context.Context, pctx *Context) (pipeteer.WriteQueue[pipeteer.Routed[A]], error) {
	client := httpqueue.NewClient(r.url, nil)
	return pipeteer.QueueOf[pipeteer.Routed[A]](client), nil
}
