// Package pipeteer provides a durable, replay-based workflow engine.
//
// # Overview
//
// Pipeteer lets a caller declare a directed graph of activities (atomic
// async operations, A -> B) and workflows (coordinators that call other
// activities or workflows, suspending and resuming across process
// restarts) and run it against a persistent backend that stores work
// items in durable queues.
//
// The package here defines the core contracts: the Queue/ListQueue
// abstraction with per-key reservation leases, Backend.Transact, which
// commits a set of queue mutations atomically, and the Backend factory
// that hands out queues by path. The pipeline composition model
// (activities, tasks, workflows, the replay engine and the runner) lives
// in the pipeline subpackage; concrete storage lives in storage/sql and
// queue/httpqueue.
//
// # Delivery semantics
//
// Pipeteer is at-least-once. A queue item becomes invisible for a
// caller-chosen reservation duration when read; if the reader crashes or
// never commits, the lease expires and the item becomes visible again.
// Handlers (activity bodies, workflow coordinators) must therefore be
// idempotent or tolerant of repetition.
//
// # Non-goals
//
// No distributed consensus (durability is delegated to the storage
// backend), no exactly-once delivery, no global scheduler, and no
// preemption of running activities.
package pipeteer
