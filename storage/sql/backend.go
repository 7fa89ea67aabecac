package sql

import (
	"context"
	"errors"

	"github.com/romanqed/pipeteer"
	"github.com/uptrace/bun"
)

// Backend implements pipeteer.Backend over a *bun.DB. The same type
// also represents the tx-bound view handed to a Transact callback; in
// that view root is nil, so a nested Transact call just reuses the
// existing bun.IDB instead of trying to open a second transaction.
type Backend struct {
	idb  bun.IDB
	root *bun.DB
	dsn  string
}

// NewBackend wraps db as a pipeteer.Backend. dsn identifies db's
// storage for the purposes of Transaction grouping (StorageID) and
// should be the same DSN used to open db.
func NewBackend(db *bun.DB, dsn string) *Backend {
	return &Backend{idb: db, root: db, dsn: dsn}
}

func (b *Backend) StorageID() string {
	return b.dsn
}

// DB exposes the underlying *bun.DB, for callers that need to build a
// Cleaner or otherwise step outside the pipeteer.Backend contract. It
// is nil for the tx-bound view passed to a Transact callback.
func (b *Backend) DB() *bun.DB {
	return b.root
}

func (b *Backend) Queue(ctx context.Context, path pipeteer.Path) (pipeteer.RawQueue, error) {
	return b.queueByTable(ctx, pipeteer.JoinPath(path))
}

func (b *Backend) queueByTable(ctx context.Context, table string) (pipeteer.RawQueue, error) {
	if b.root != nil {
		if err := ensureTable(ctx, b.root, table); err != nil {
			return nil, pipeteer.WrapInfra(err)
		}
	}
	return &queue{idb: b.idb, table: table, storageID: b.dsn}, nil
}

func (b *Backend) ListQueue(ctx context.Context, path pipeteer.Path) (pipeteer.RawListQueue, error) {
	raw, err := b.Queue(ctx, path)
	if err != nil {
		return nil, err
	}
	return &listQueue{queue: raw.(*queue), root: b.root}, nil
}

func (b *Backend) Output(ctx context.Context) (pipeteer.RawQueue, error) {
	return b.Queue(ctx, pipeteer.OutputPath)
}

// QueueAt resolves a pipeteer.LocalURL back to the table it names.
// It cannot resolve an httpqueue (http/https) URL; pipeline.Context
// pairs this Backend with queue/httpqueue's client for that case.
func (b *Backend) QueueAt(ctx context.Context, url string) (pipeteer.RawQueue, error) {
	table, ok := pipeteer.SplitLocalURL(url)
	if !ok {
		return nil, pipeteer.NewQueueError("sql backend cannot resolve remote queue %q", url)
	}
	return b.queueByTable(ctx, table)
}

func (b *Backend) Transact(ctx context.Context, fn func(ctx context.Context, tx pipeteer.Backend) error) error {
	if b.root == nil {
		// Already inside a transaction: nesting reuses it rather than
		// attempting a second BeginTx, which bun does not support.
		return fn(ctx, b)
	}
	tx, err := b.root.BeginTx(ctx, nil)
	if err != nil {
		return pipeteer.WrapInfra(err)
	}
	txBackend := &Backend{idb: tx, dsn: b.dsn}
	if err := fn(ctx, txBackend); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return pipeteer.WrapInfra(err)
	}
	return nil
}
