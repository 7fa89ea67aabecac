// Package sql provides a bun-based Backend implementation for pipeteer.
//
// It implements pipeteer.Backend, pipeteer.RawQueue and
// pipeteer.RawListQueue over a relational database via
// github.com/uptrace/bun, compatible with SQLite
// (modernc.org/sqlite, no cgo) and PostgreSQL
// (github.com/jackc/pgx/v5 + bun's pgdialect), subject to each
// dialect's own transactional guarantees.
//
// # Schema
//
// Every queue path gets its own table, named by pipeteer.JoinPath, with
// columns key (PK), value (JSON), ttl (nullable timestamp), created_at,
// updated_at. Tables are created lazily the first time Backend.Queue or
// Backend.ListQueue sees a path, since the set of paths is only known
// once pipelines declare their queues, not at InitDB time.
//
// # Concurrency model
//
// Reservation acquisition (Read/ReadAny with a non-zero reserve) uses a
// single atomic UPDATE ... RETURNING statement gated on ttl IS NULL OR
// ttl < now, so two concurrent readers racing for the same row never
// both win the lease. ListQueue.Append falls back to a transactional
// read-modify-write, since array concatenation syntax differs across
// dialects.
//
// SQLite users should enable WAL mode and a busy_timeout, same as for
// any bun/SQLite deployment; this package does not configure the DSN
// for callers.
//
// # Lifecycle
//
// This package does not manage connection pooling or migrations beyond
// its own per-table bootstrap. The caller owns *bun.DB construction and
// its connection limits.
package sql
