// Package orchestrator drives the indexing pipeline: snapshot the
// workspace, diff against the stored snapshot for the current branch,
// chunk what changed, hand the batch to the transmission callbacks, and
// persist the new snapshot only after the pass succeeds.
//
// Passes are single-flight. A trigger that arrives while a pass is
// running is dropped, except for branch changes, which set a rescan flag
// so exactly one follow-up pass runs once the current one finishes.
package orchestrator
