// Package store provides SQLite-backed durable storage for compiled filters.
//
// Every compilation the CLI performs with --db is appended to one table,
// compilations, keyed by run ID. Rows are never updated.
//
// # Critical Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER from a logical clock, NEVER timestamps
//   - A reopened store resumes its clock at MAX(seq)
//
// Deterministic query results:
//   - All queries include ORDER BY seq ASC, run_id ASC COLLATE BINARY
//
// Idempotent writes:
//   - ON CONFLICT(run_id) DO NOTHING; a duplicate run ID is silently ignored
//
// Params are stored as canonical JSON (internal/canonical) so identical
// bindings are byte-identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
