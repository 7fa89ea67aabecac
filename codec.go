package pipeteer

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
)

// RawQueue is a Queue of opaque JSON payloads. Backends implement this
// (and RawListQueue) rather than a generic interface, since Go methods
// cannot be generic; QueueOf attaches a concrete T's codec on top.
type RawQueue interface {
	Read(ctx context.Context, key string, reserve Reservation) (json.RawMessage, error)
	ReadAny(ctx context.Context, reserve Reservation) (string, json.RawMessage, error)
	WaitAny(ctx context.Context, reserve Reservation) (string, json.RawMessage, error)
	Items(ctx context.Context, reserve Reservation, max int) iter.Seq2[string, json.RawMessage]
	Has(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
	Push(ctx context.Context, key string, value json.RawMessage) error
	Pop(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	StorageID() string
}

// RawListQueue is a RawQueue whose values are JSON arrays, with a
// server-side atomic append.
type RawListQueue interface {
	RawQueue
	Append(ctx context.Context, key string, value json.RawMessage) error
}

// QueueOf attaches T's JSON codec to a RawQueue, producing the typed
// Queue[T] pipeline code actually works against.
func QueueOf[T any](raw RawQueue) Queue[T] {
	return &jsonQueue[T]{raw: raw}
}

// ListQueueOf attaches T's JSON codec to a RawListQueue.
func ListQueueOf[T any](raw RawListQueue) ListQueue[T] {
	return &jsonListQueue[T]{jsonQueue: jsonQueue[[]T]{raw: raw}, raw: raw}
}

type jsonQueue[T any] struct {
	raw RawQueue
}

func encode[T any](value T) (json.RawMessage, error) {
	buf, err := json.Marshal(value)
	if err != nil {
		return nil, WrapInfra(fmt.Errorf("encode payload: %w", err))
	}
	return buf, nil
}

func decode[T any](raw json.RawMessage) (T, error) {
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, WrapInfra(fmt.Errorf("decode payload: %w", err))
	}
	return value, nil
}

func (q *jsonQueue[T]) Read(ctx context.Context, key string, reserve Reservation) (T, error) {
	var zero T
	raw, err := q.raw.Read(ctx, key, reserve)
	if err != nil {
		return zero, err
	}
	return decode[T](raw)
}

func (q *jsonQueue[T]) ReadAny(ctx context.Context, reserve Reservation) (string, T, error) {
	var zero T
	key, raw, err := q.raw.ReadAny(ctx, reserve)
	if err != nil {
		return "", zero, err
	}
	value, err := decode[T](raw)
	return key, value, err
}

func (q *jsonQueue[T]) WaitAny(ctx context.Context, reserve Reservation) (string, T, error) {
	var zero T
	key, raw, err := q.raw.WaitAny(ctx, reserve)
	if err != nil {
		return "", zero, err
	}
	value, err := decode[T](raw)
	return key, value, err
}

func (q *jsonQueue[T]) Items(ctx context.Context, reserve Reservation, max int) iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		for key, raw := range q.raw.Items(ctx, reserve, max) {
			value, err := decode[T](raw)
			if err != nil {
				// A corrupt row should not silently vanish from the
				// sequence; surface the zero value so callers relying on
				// Keys/Values still see the key was present.
				value = *new(T)
			}
			if !yield(key, value) {
				return
			}
		}
	}
}

func (q *jsonQueue[T]) Has(ctx context.Context, key string) (bool, error) {
	return q.raw.Has(ctx, key)
}

func (q *jsonQueue[T]) Keys(ctx context.Context) ([]string, error) {
	return q.raw.Keys(ctx)
}

func (q *jsonQueue[T]) Values(ctx context.Context) ([]T, error) {
	var values []T
	for _, value := range q.Items(ctx, None, 0) {
		values = append(values, value)
	}
	return values, nil
}

func (q *jsonQueue[T]) Push(ctx context.Context, key string, value T) error {
	raw, err := encode[T](value)
	if err != nil {
		return err
	}
	return q.raw.Push(ctx, key, raw)
}

func (q *jsonQueue[T]) Pop(ctx context.Context, key string) error {
	return q.raw.Pop(ctx, key)
}

func (q *jsonQueue[T]) Clear(ctx context.Context) error {
	return q.raw.Clear(ctx)
}

func (q *jsonQueue[T]) StorageID() string {
	return q.raw.StorageID()
}

// jsonListQueue adapts a RawListQueue the same way jsonQueue adapts a
// RawQueue, adding the per-element (not per-list) Append codec.
type jsonListQueue[T any] struct {
	jsonQueue[[]T]
	raw RawListQueue
}

func (q *jsonListQueue[T]) Append(ctx context.Context, key string, value T) error {
	raw, err := encode[T](value)
	if err != nil {
		return err
	}
	return q.raw.Append(ctx, key, raw)
}
