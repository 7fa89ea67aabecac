package sql

import (
	"context"
	gosql "database/sql"
	"encoding/json"
	"errors"
	"iter"
	"time"

	"github.com/romanqed/pipeteer"
	"github.com/uptrace/bun"
)

// queue implements pipeteer.RawQueue over one dynamically-named table.
// idb is either the backend's *bun.DB (auto-commit) or a bun.Tx handed
// down by Backend.Transact, so the same code path serves both modes.
type queue struct {
	idb       bun.IDB
	table     string
	storageID string
}

func (q *queue) StorageID() string {
	return q.storageID
}

func (q *queue) Push(ctx context.Context, key string, value json.RawMessage) error {
	now := time.Now()
	row := &rowModel{Key: key, Value: value, TTL: nil, CreatedAt: now, UpdatedAt: now}
	_, err := q.idb.NewInsert().
		Model(row).
		ModelTableExpr("?", bun.Ident(q.table)).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("ttl = NULL").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return pipeteer.WrapInfra(err)
}

func (q *queue) Pop(ctx context.Context, key string) error {
	res, err := q.idb.NewDelete().
		Model((*rowModel)(nil)).
		ModelTableExpr("?", bun.Ident(q.table)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return pipeteer.WrapInfra(err)
	}
	if !isAffected(res) {
		return &pipeteer.NotFoundError{Key: key}
	}
	return nil
}

func (q *queue) Read(ctx context.Context, key string, reserve pipeteer.Reservation) (json.RawMessage, error) {
	now := time.Now()
	if reserve <= 0 {
		var row rowModel
		err := q.idb.NewSelect().
			Model(&row).
			ModelTableExpr("?", bun.Ident(q.table)).
			Where("key = ?", key).
			Where("ttl IS NULL OR ttl < ?", now).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, gosql.ErrNoRows) {
				return nil, &pipeteer.NotFoundError{Key: key}
			}
			return nil, pipeteer.WrapInfra(err)
		}
		return row.Value, nil
	}
	until := now.Add(time.Duration(reserve))
	var row rowModel
	err := q.idb.NewUpdate().
		Model(&row).
		ModelTableExpr("?", bun.Ident(q.table)).
		Set("ttl = ?", until).
		Set("updated_at = ?", now).
		Where("key = ?", key).
		Where("ttl IS NULL OR ttl < ?", now).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, gosql.ErrNoRows) {
			return nil, &pipeteer.NotFoundError{Key: key}
		}
		return nil, pipeteer.WrapInfra(err)
	}
	return row.Value, nil
}

func (q *queue) ReadAny(ctx context.Context, reserve pipeteer.Reservation) (string, json.RawMessage, error) {
	now := time.Now()
	sub := q.idb.NewSelect().
		ModelTableExpr("?", bun.Ident(q.table)).
		Model((*rowModel)(nil)).
		Column("key").
		Where("ttl IS NULL OR ttl < ?", now).
		Order("key ASC").
		Limit(1)
	if reserve <= 0 {
		var row rowModel
		err := q.idb.NewSelect().
			Model(&row).
			ModelTableExpr("?", bun.Ident(q.table)).
			Where("key IN (?)", sub).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, gosql.ErrNoRows) {
				return "", nil, &pipeteer.NotFoundError{Key: ""}
			}
			return "", nil, pipeteer.WrapInfra(err)
		}
		return row.Key, row.Value, nil
	}
	until := now.Add(time.Duration(reserve))
	var row rowModel
	err := q.idb.NewUpdate().
		Model(&row).
		ModelTableExpr("?", bun.Ident(q.table)).
		Set("ttl = ?", until).
		Set("updated_at = ?", now).
		Where("key IN (?)", sub).
		Where("ttl IS NULL OR ttl < ?", now).
		Returning("*").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, gosql.ErrNoRows) {
			return "", nil, &pipeteer.NotFoundError{Key: ""}
		}
		return "", nil, pipeteer.WrapInfra(err)
	}
	return row.Key, row.Value, nil
}

func (q *queue) WaitAny(ctx context.Context, reserve pipeteer.Reservation) (string, json.RawMessage, error) {
	return pipeteer.WaitAnyRaw(ctx, q, reserve)
}

func (q *queue) Items(ctx context.Context, reserve pipeteer.Reservation, max int) iter.Seq2[string, json.RawMessage] {
	return func(yield func(string, json.RawMessage) bool) {
		now := time.Now()
		sel := q.idb.NewSelect().
			Model((*rowModel)(nil)).
			ModelTableExpr("?", bun.Ident(q.table)).
			Where("ttl IS NULL OR ttl < ?", now).
			Order("key ASC").
			Column("key")
		if max > 0 {
			sel = sel.Limit(max)
		}
		var keys []string
		if err := sel.Scan(ctx, &keys); err != nil {
			return
		}
		for _, key := range keys {
			value, err := q.Read(ctx, key, reserve)
			if err != nil {
				// Lost the race to reserve it, or it was popped
				// between listing and fetching: skip, don't fail
				// the whole iteration.
				continue
			}
			if !yield(key, value) {
				return
			}
		}
	}
}

func (q *queue) Has(ctx context.Context, key string) (bool, error) {
	_, err := q.Read(ctx, key, pipeteer.None)
	if err == nil {
		return true, nil
	}
	if pipeteer.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (q *queue) Keys(ctx context.Context) ([]string, error) {
	now := time.Now()
	var keys []string
	err := q.idb.NewSelect().
		Model((*rowModel)(nil)).
		ModelTableExpr("?", bun.Ident(q.table)).
		Where("ttl IS NULL OR ttl < ?", now).
		Order("key ASC").
		Column("key").
		Scan(ctx, &keys)
	if err != nil {
		return nil, pipeteer.WrapInfra(err)
	}
	return keys, nil
}

func (q *queue) Clear(ctx context.Context) error {
	_, err := q.idb.NewDelete().
		Model((*rowModel)(nil)).
		ModelTableExpr("?", bun.Ident(q.table)).
		Where("1 = 1").
		Exec(ctx)
	return pipeteer.WrapInfra(err)
}
