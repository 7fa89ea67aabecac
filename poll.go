package pipeteer

import (
	"context"
	"encoding/json"
	"time"
)

// PollInterval is the fixed sleep WaitAnyRaw uses between ReadAny
// retries on an empty queue. A notification channel (see the notify
// package) may wake a waiter early; correctness never depends on it.
const PollInterval = time.Second

// WaitAnyRaw implements the blocking wait_any primitive described on
// Queue in terms of a storage's ReadAny: loop ReadAny, sleeping
// PollInterval whenever it reports NotFound, until an item appears or
// ctx is cancelled. Backends call this from their own WaitAny method so
// the retry loop is written once rather than once per storage.
func WaitAnyRaw(ctx context.Context, raw RawQueue, reserve Reservation) (string, json.RawMessage, error) {
	for {
		key, value, err := raw.ReadAny(ctx, reserve)
		if err == nil {
			return key, value, nil
		}
		if !IsNotFound(err) {
			return "", nil, err
		}
		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}
