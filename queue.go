package pipeteer

import (
	"context"
	"iter"
)

// ReadQueue is the read half of a Queue. Implementations must honor the
// reservation semantics documented on Queue.
type ReadQueue[T any] interface {
	// Read returns the value at key. If reserve is non-zero, the item's
	// ttl is set to now+reserve and it becomes invisible to other
	// readers until the lease expires. Read fails with a *NotFoundError
	// if the key is absent or currently reserved; there is no reader
	// identity, so this holds for the reader that took the lease too.
	Read(ctx context.Context, key string, reserve Reservation) (T, error)

	// ReadAny returns any one currently-visible item, applying reserve
	// to it the same way Read does. It does not block: if no item is
	// visible it fails with a *NotFoundError. Queue.WaitAny is the
	// blocking form.
	ReadAny(ctx context.Context, reserve Reservation) (string, T, error)

	// Items iterates up to max visible items (max<=0 means unbounded),
	// applying reserve to each as it is yielded. The sequence is finite
	// and not restartable.
	Items(ctx context.Context, reserve Reservation, max int) iter.Seq2[string, T]

	// Has reports whether key currently names a visible item.
	Has(ctx context.Context, key string) (bool, error)

	// Keys returns the keys of all currently-visible items.
	Keys(ctx context.Context) ([]string, error)

	// Values returns the values of all currently-visible items.
	Values(ctx context.Context) ([]T, error)
}

// WriteQueue is the write half of a Queue.
type WriteQueue[T any] interface {
	// Push inserts or replaces the item at key, clearing any existing
	// reservation. Fails with an *InfraError on storage failure.
	Push(ctx context.Context, key string, value T) error

	// Pop deletes the item at key. Fails with a *NotFoundError if
	// absent; this package requires erroring rather than a silent
	// no-op, so callers can distinguish "already consumed" from "just
	// consumed" when retrying after a crash.
	Pop(ctx context.Context, key string) error

	// Clear removes every item in the queue.
	Clear(ctx context.Context) error
}

// Queue is a durable keyed mailbox with per-item reservation leases. See
// the package doc for the delivery model.
type Queue[T any] interface {
	ReadQueue[T]
	WriteQueue[T]

	// WaitAny is the blocking poll primitive workers use: it is
	// equivalent to looping ReadAny with a fixed sleep on "empty",
	// optionally short-circuited by a notification channel. Correctness
	// never depends on the notification channel firing.
	WaitAny(ctx context.Context, reserve Reservation) (string, T, error)

	// StorageID identifies the underlying storage handle this queue is
	// backed by (a DSN for a SQL-backed queue, a base URL for a remote
	// HTTP queue). Two queues that return the same StorageID can share
	// one physical transaction; see Backend.Transact.
	StorageID() string
}
