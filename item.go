package pipeteer

import "time"

// Item is one queue entry as handed to a worker: a caller-chosen key and
// its JSON-serializable value. The reservation deadline lives in storage
// only and is not carried here.
type Item[T any] struct {
	Key   string
	Value T
}

// Reservation describes how long a read should hide an item from other
// readers. A zero Reservation means "read without reserving" (the item
// stays visible to other readers).
type Reservation time.Duration

// None is the zero Reservation: read without acquiring a lease.
const None Reservation = 0
