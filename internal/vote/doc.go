// Package vote implements optimistic vote reconciliation for threads and
// comments.
//
// A Reconciler owns the displayed Tally of one entity. Cast applies the
// toggle policy and the new counters synchronously, then persists the target
// vote in the background. A successful response corrects the counters from
// the server; a failure restores the last confirmed state and emits a Notice.
// At most one request per entity is in flight; clicks arriving meanwhile only
// move the desired vote, and a single follow-up request is sent once the
// in-flight one settles.
package vote
