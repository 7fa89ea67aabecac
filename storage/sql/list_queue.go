package sql

import (
	"context"
	gosql "database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/romanqed/pipeteer"
	"github.com/uptrace/bun"
)

// listQueue implements pipeteer.RawListQueue. Append uses a
// transactional read-modify-write rather than a dialect-specific array
// concatenation function, the fallback the queue contract explicitly
// allows, since SQLite and Postgres JSON array append syntax differ.
type listQueue struct {
	*queue
	root *bun.DB // nil when embedded in an already tx-bound Backend
}

func (lq *listQueue) Append(ctx context.Context, key string, value json.RawMessage) error {
	do := func(ctx context.Context, idb bun.IDB) error {
		var row rowModel
		err := idb.NewSelect().
			Model(&row).
			ModelTableExpr("?", bun.Ident(lq.table)).
			Where("key = ?", key).
			Scan(ctx)
		var list []json.RawMessage
		switch {
		case err == nil:
			if err := json.Unmarshal(row.Value, &list); err != nil {
				return pipeteer.WrapInfra(err)
			}
		case errors.Is(err, gosql.ErrNoRows):
			list = nil
		default:
			return pipeteer.WrapInfra(err)
		}
		list = append(list, value)
		buf, err := json.Marshal(list)
		if err != nil {
			return pipeteer.WrapInfra(err)
		}
		now := time.Now()
		_, err = idb.NewInsert().
			Model(&rowModel{Key: key, Value: buf, CreatedAt: now, UpdatedAt: now}).
			ModelTableExpr("?", bun.Ident(lq.table)).
			On("CONFLICT (key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return pipeteer.WrapInfra(err)
	}
	if lq.root == nil {
		return do(ctx, lq.idb)
	}
	tx, err := lq.root.BeginTx(ctx, nil)
	if err != nil {
		return pipeteer.WrapInfra(err)
	}
	if err := do(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return pipeteer.WrapInfra(tx.Commit())
}
