// Package entitlement composes the engine the product embeds: session,
// backend client, snapshot provider, evaluator, checkout and the
// confirmation flows, wired from one Config.
//
// # Read paths
//
// Decision serves screens and fails open: when the backend is unreachable
// the viewer keeps watching and the gate decision is made against a
// permissive snapshot. Authorize guards actions and is strict: it refuses
// to consume anything it cannot verify, returning a typed denial that
// carries the reason and the user-facing message.
//
// # Mutations
//
// Every mutation goes through a flow or the checkout orchestrator, is never
// retried automatically, and ends by invalidating the cached snapshot so
// the next read refetches from the backend.
package entitlement
