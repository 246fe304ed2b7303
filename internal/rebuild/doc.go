// Package rebuild implements the Rebuild Orchestrator.
//
// ARCHITECTURE:
//
// One pass walks the document's feature dependency graph in topological
// order (ties broken by document position) and, for each feature in scope:
//  1. blocks it when an input failed, without touching the kernel
//  2. checks the operation's slot contract
//  3. resolves every reference slot against the source shape
//  4. executes the kernel operation with the resolved handles
//  5. on success re-derives canonical bundles and advances the stable
//     snapshot; on failure records a rollback {from, to}
//
// Every feature is evaluated at most once per pass, inside its own failure
// boundary; failures travel downstream only as Blocked envelopes.
//
// CONCURRENCY:
//
// A pass exclusively owns the document it rebuilds (a clone of the
// input). Workspace enforces at most one pass in flight per document and
// serializes edits through a single-writer Run loop. Cancellation is
// checked between features, never inside a kernel call; a cancelled pass
// is discarded.
//
// DETERMINISM:
//
// Pass tokens and sequence numbers label passes but never influence
// evaluation. The per-pass entity cache is dropped when the pass ends.
package rebuild
