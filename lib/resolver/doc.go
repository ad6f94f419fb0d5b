// Package resolver implements the cell version resolver: the
// optimistic-concurrency state machine through which every canvas write
// flows. A write succeeds only if the caller's claimed prior version id
// matches the actual current id at commit time; the atomic check-then-write
// itself is delegated to the store's compare-and-set primitives, so the
// resolver stays free of locks.
//
// Write policy owned by this package:
//   - content is bounded at 300 runes and HTML-escaped before it is stored,
//     so consumers can render it as text without injection risk
//   - empty content with no background color is the delete convention; a
//     delete of an already empty cell is accepted as a no-op
//   - on updates, a write without a color inherits the replaced version's
//     color (fresh creations stay colorless)
//   - every successful state change emits exactly one cell event and one
//     statistics refresh through the Notifier
package resolver
