package httpqueue

import (
	"context"
	"net/http"

	"github.com/romanqed/pipeteer"
)

// Backend resolves Routed.URL values that name a remote queue server.
// It does not create queues of its own (there is no "list queue paths"
// endpoint in the wire protocol); Queue/ListQueue/Output all fail with
// a QueueError directing callers to a concrete backend. Pair it with
// that backend in pipeline.Context, which dispatches by URL scheme.
type Backend struct {
	HTTP *http.Client
}

// NewBackend builds a Backend. If httpClient is nil, http.DefaultClient
// is used for every resolved Client.
func NewBackend(httpClient *http.Client) *Backend {
	return &Backend{HTTP: httpClient}
}

func (b *Backend) StorageID() string {
	return "httpqueue"
}

func (b *Backend) Queue(ctx context.Context, path pipeteer.Path) (pipeteer.RawQueue, error) {
	return nil, pipeteer.NewQueueError("httpqueue backend does not create queues; resolve one by URL with QueueAt")
}

func (b *Backend) ListQueue(ctx context.Context, path pipeteer.Path) (pipeteer.RawListQueue, error) {
	return nil, pipeteer.NewQueueError("httpqueue backend does not create list-queues; resolve one by URL with QueueAt")
}

func (b *Backend) Output(ctx context.Context) (pipeteer.RawQueue, error) {
	return nil, pipeteer.NewQueueError("httpqueue backend has no canonical output queue")
}

func (b *Backend) QueueAt(ctx context.Context, url string) (pipeteer.RawQueue, error) {
	return NewClient(url, b.HTTP), nil
}

// Transact runs fn directly against b: the wire protocol has no
// transaction endpoint, so every mutation inside fn commits
// individually and immediately, matching the queue contract's
// best-effort degradation for cross-storage transactions.
func (b *Backend) Transact(ctx context.Context, fn func(ctx context.Context, tx pipeteer.Backend) error) error {
	return fn(ctx, b)
}
