package pipeteer

import (
	"errors"
	"fmt"
)

// NotFoundError indicates that a requested item is not present in a
// queue, or is currently hidden behind a live reservation.
//
// Callers either handle it explicitly (Has) or let it surface.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item not found: %q", e.Key)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// InfraError wraps a storage or transport failure. It is retried
// implicitly by the pipeline workers via lease expiry, and logged.
type InfraError struct {
	Cause error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("infrastructure error: %v", e.Cause)
}

func (e *InfraError) Unwrap() error {
	return e.Cause
}

// WrapInfra wraps err as an InfraError, unless it already is one (or nil).
func WrapInfra(err error) error {
	if err == nil {
		return nil
	}
	var e *InfraError
	if errors.As(err, &e) {
		return err
	}
	return &InfraError{Cause: err}
}

// QueueError indicates a protocol-level inconsistency, such as
// committing outside of a transaction. It signals a programmer bug and
// is raised up rather than retried.
type QueueError struct {
	Message string
}

func (e *QueueError) Error() string {
	return e.Message
}

// NewQueueError builds a QueueError with the given message.
func NewQueueError(format string, args ...any) error {
	return &QueueError{Message: fmt.Sprintf(format, args...)}
}

// ErrPartialCommit wraps the error a pipeline worker returns when a step
// pushed to a queue on a different storage (outside the step's own
// Backend.Transact call, since there is no shared session to enrol it
// in) and the own-storage side of that same step then failed. The
// caller observes an inconsistent, non-atomic outcome rather than a
// silent one; see pipeline.activityWorker.handle and
// pipeline.workflowWorker for the call sites that wrap it.
var ErrPartialCommit = errors.New("pipeteer: step pushed to a different storage before its own-storage commit failed")
