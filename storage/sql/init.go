package sql

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

func createTable(ctx context.Context, db bun.IDB, table string) error {
	_, err := db.NewCreateTable().
		Model((*rowModel)(nil)).
		ModelTableExpr("?", bun.Ident(table)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createTTLIndex(ctx context.Context, db bun.IDB, table string) error {
	_, err := db.NewCreateIndex().
		Model((*rowModel)(nil)).
		ModelTableExpr("?", bun.Ident(table)).
		Index(fmt.Sprintf("idx_%s_ttl", table)).
		Column("ttl").
		IfNotExists().
		Exec(ctx)
	return err
}

func ensureTable(ctx context.Context, db *bun.DB, table string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createTable(ctx, tx, table); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createTTLIndex(ctx, tx, table); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// InitDB prepares db for use as a Backend by nothing more than
// verifying connectivity; queue tables themselves are created lazily,
// one per distinct path, the first time Backend.Queue/ListQueue sees
// that path, since the set of paths isn't known until pipelines
// declare their queues. InitDB exists as a symmetrical entry point with
// the teacher's schema bootstrap and as a place to fail fast on a bad
// DSN before starting any workers.
func InitDB(ctx context.Context, db *bun.DB) error {
	return db.PingContext(ctx)
}

// MustInitDB behaves like InitDB but panics if the connection check
// fails. Intended for application bootstrap code where a bad DSN is
// unrecoverable.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := InitDB(ctx, db); err != nil {
		panic(err)
	}
}
