// Package registry provides a permissioned pay-per-view content registry with
// rating aggregation, governed by a small membership-based proposal and vote
// mechanism and an owner-controlled pause switch.
//
// It exposes a single Service interface. Persistence is delegated to a
// Repository (memory, Postgres and SQLite implementations live under repo/),
// value transfer to a Ledger (ledger/memory), and notifications to an
// EventSink (log, CloudEvents and Prometheus sinks are provided).
//
// # Ordering
//
// Every mutating operation is serialized through a single writer lock per
// Service instance. Publish, view, rate and execute additionally run inside a
// reentrancy latch: a nested call into any of them, made from a collaborator
// invoked by a running operation with the operation's context, fails with
// ErrReentrancyDetected instead of blocking. A collaborator that calls back
// with a context other than the one it was handed is detected by the writer
// lock instead: while a Ledger transfer is in flight, a mutating call that
// cannot take the lock fails with ErrReentrancyDetected and a read runs
// against the committed state without waiting.
//
// Notifications are queued while an operation runs and delivered to the
// EventSink after the writer lock is released.
//
// ViewContent commits the view count before it asks the Ledger to move funds.
// A failed transfer is reported as ErrTransferFailed and the view stays
// counted.
package registry
