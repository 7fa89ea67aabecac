package pipeteer

import "github.com/google/uuid"

// NewKey generates a fresh random key for a queue item, for callers
// starting a new workflow instance or submitting a task that has no
// natural key of its own to reuse.
func NewKey() string {
	return uuid.NewString()
}
