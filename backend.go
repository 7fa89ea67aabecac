package pipeteer

import "context"

// Backend is a factory for queues. It is the only component allowed to
// create queues; workers receive already-bound handles (Queue[T],
// ListQueue[T]) and never talk to storage directly.
//
// Backend itself is not generic over the payload type: Go has no
// generic methods, so Backend hands out RawQueue/RawListQueue (queues
// of json.RawMessage) and the typed wrappers in codec.go (QueueOf,
// ListQueueOf) attach the encode/decode codec for a concrete T at the
// construction site, per the design notes' "codec functions replace
// runtime type introspection" guidance.
type Backend interface {
	// Queue returns the queue at path, creating its storage if this is
	// the first reference to path.
	Queue(ctx context.Context, path Path) (RawQueue, error)

	// ListQueue returns the list-queue at path.
	ListQueue(ctx context.Context, path Path) (RawListQueue, error)

	// Output returns the canonical queue at OutputPath.
	Output(ctx context.Context) (RawQueue, error)

	// QueueAt resolves a queue addressed by url, the distributed variant
	// of Queue. A URL naming this backend's own storage (a LocalURL on
	// the SQL backend) yields a queue sharing this backend's StorageID;
	// a remote URL yields one whose StorageID is derived from url.
	QueueAt(ctx context.Context, url string) (RawQueue, error)

	// StorageID identifies this backend's own storage handle (a DSN for
	// a SQL-backed backend). Queues returned by Queue/ListQueue/Output
	// share it; queues returned by QueueAt generally do not.
	StorageID() string

	// Transact runs fn with tx, a view of this backend whose own-storage
	// queues share one physical transaction: every push/pop/append they
	// see during fn is deferred and applied as a unit when fn returns
	// nil, or discarded when fn returns an error. Queues on a different
	// storage (a remote URL resolved through QueueAt) are not covered by
	// that transaction; their mutations apply immediately, best-effort.
	// Transact itself has no visibility into whether fn used such a
	// foreign queue; a caller that mixes own-storage and foreign
	// mutations inside fn (the pipeline workers do, via
	// Context.resolveRouted) is responsible for noticing when a foreign
	// mutation already took effect before Transact's own-storage commit
	// failed, and for surfacing that as ErrPartialCommit so the caller
	// can observe the inconsistency instead of assuming atomicity it
	// does not have.
	Transact(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error
}
