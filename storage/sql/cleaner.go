package sql

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Cleaner deletes rows directly from a queue table, bypassing the
// Queue contract's pop-by-key semantics. It is meant for background
// retention sweeps, not normal processing: a reaper pairs it with a
// set of table names and an age threshold to purge queue rows that
// were never consumed (for example a workflow's states/urls tables
// left behind by an instance that crashed before completing).
//
// Cleaner never touches a currently-reserved row: Purge only matches
// rows whose ttl is unset or already expired, the same visibility rule
// Read and ReadAny apply.
type Cleaner struct {
	db *bun.DB
}

// NewCleaner builds a Cleaner over db.
func NewCleaner(db *bun.DB) *Cleaner {
	return &Cleaner{db: db}
}

// Purge deletes every visible row in table whose updated_at is at or
// before before, and reports how many rows were removed.
func (c *Cleaner) Purge(ctx context.Context, table string, before time.Time) (int64, error) {
	res, err := c.db.NewDelete().
		Model((*rowModel)(nil)).
		ModelTableExpr("?", bun.Ident(table)).
		Where("updated_at <= ?", before).
		Where("ttl IS NULL OR ttl < ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}
