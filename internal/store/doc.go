// Package store provides SQLite-backed persistence for documents and their
// rebuild history.
//
// Tables:
//   - documents: policy, active snapshot and digest per named document
//   - features: one row per feature in history order, canonical JSON columns
//   - rebuild_passes: completed passes with digests and status counts
//
// # Determinism
//
// Every JSON column is RFC 8785 canonical JSON produced by internal/canon,
// so a save/load roundtrip reproduces byte-identical slot encodings and
// the same document Digest. All queries ORDER BY position or seq.
//
// The shape cache is never persisted: a loaded document starts cold and
// its first partial rebuild also evaluates the uncached upstream features.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
