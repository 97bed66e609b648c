// Package content is the durable store for scripts: titled content items that
// form a linear version chain per title.
//
// # Versioning
//
// CreateNewVersion appends a new item to the chain of its parent's title. The
// append runs in a single transaction that first locks every row sharing the
// title (SELECT ... FOR UPDATE on Postgres, a write lock on SQLite), then
// recomputes the current maximum version with a fresh statement and inserts
// max+1 together with a bulk copy of the parent's tag relations. Concurrent
// callers on the same title are serialized by that lock; callers on different
// titles do not contend.
//
// Transient store failures (lock timeouts, deadlocks, serialization failures,
// SQLite busy/locked) retry the whole transaction following RetryPolicy
// (3 attempts, exponential backoff starting at one second by default).
// Exhausting the budget surfaces a conflict error.
//
// A unique index on (title, version) backs the protocol: an insert that loses
// a race is reported as a conflict and retried, never stored.
//
// # Errors
//
// Errors are *errors.Error values from github.com/goliatone/go-errors. Use the
// predicates IsNotFound, IsValidation, IsConflict, IsTagInactive and
// IsDuplicateRelation to classify them, and ValidationFields to read the
// field-keyed messages of a validation failure.
package content
