// Package trialstate is the single fetch-and-cache boundary for the account's
// subscription snapshot.
//
// Every protected screen reads the snapshot through one Provider instead of
// calling the status endpoints itself; divergent fetch timing across screens
// used to show inconsistent access levels within one session, so the
// consolidation is a correctness fix, not just deduplication.
//
// The cached snapshot is the only shared mutable resource in the engine. It
// is written exclusively through Invalidate-then-refetch — never patched in
// place — and every mutating billing flow calls Invalidate on success.
//
// # Read-path failure policy
//
// ViewSnapshot fails open: on a transient fetch failure it returns a
// permissive trial-equivalent snapshot so a network blip never locks a paying
// customer out of their dashboard. This is deliberate product policy and it
// applies to view gating only — Get, which mutating flows use, always fails
// strictly. WithFailClosed switches the view path to strict gating.
package trialstate
