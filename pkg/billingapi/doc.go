// Package billingapi is the typed client for the backend subscription API.
//
// The backend is the source of truth for subscription, trial and
// payment-method state; this client only reads it and triggers mutations, it
// never persists billing state of its own. Raw card data never passes through
// here — card collection is the payment processor's job (pkg/checkout), and
// this API only ever sees opaque payment-method identifiers.
//
// # Error taxonomy
//
// Callers branch on three kinds of failure:
//
//   - transient transport failures, wrapped with ErrUnavailable: nothing
//     changed server-side as far as the client knows, and the read path may
//     fail open on them;
//   - backend rejections (*RejectionError), carrying the backend's detail
//     message verbatim for display: surfaced to the user, never retried
//     automatically;
//   - ErrSessionExpired on 401, after firing the registered hook.
//
// A 409 additionally matches ErrStaleState: the snapshot was outdated when
// the mutation was attempted, and the fix is refetch-then-redecide, not a
// retry of the mutation.
package billingapi
