package sql

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// OpenPostgres opens a *bun.DB against a PostgreSQL dsn using pgx's
// database/sql driver and bun's pgdialect, for deployments that want a
// server-grade backend instead of the embedded SQLite one. The caller
// owns connection pool tuning on the returned *bun.DB; pass dsn again
// to NewBackend so StorageID matches.
func OpenPostgres(dsn string) (*bun.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}
