package pipeteer

import "context"

// ListQueue specialises Queue[[]T] with one additional server-side
// atomic operation. The list at a key is never replaced by Append; it
// only grows.
type ListQueue[T any] interface {
	Queue[[]T]

	// Append atomically appends value to the list at key, creating a
	// single-element list if key is absent. Semantically equivalent to
	// Read + mutate + Push, but implemented so it is atomic under
	// concurrent appenders to the same key.
	Append(ctx context.Context, key string, value T) error
}
