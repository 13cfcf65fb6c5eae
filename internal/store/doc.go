// Package store provides SQLite-backed durable storage for CUI dispatch journals.
//
// A journal is an append-only log with:
//   - Sessions: one row per engine run, pinned to the rule tree hash
//   - Documents: resolved documents, content-addressed by ir.DocumentHash
//   - Dispatches: one row per event dispatched, with its outcome and the
//     hash of the document it left behind
//
// # Logical Time
//
// All ordering uses seq INTEGER (the engine's logical clock), never
// timestamps. Reads order by seq ASC so a replay sees dispatches in the
// order they were originally applied.
//
// # Idempotency
//
// Every insert uses ON CONFLICT DO NOTHING. Re-writing a session, a
// document or a (session, seq) dispatch is a silent no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
