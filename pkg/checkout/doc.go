// Package checkout collects payment methods and starts trials without ever
// holding raw card data in the application's own backend or storage.
//
// Two entry points exist. AttachPaymentMethod runs the inline flow: the
// backend issues a setup intent, the payment processor confirms it with the
// tokenized card fields, and the resulting payment-method identifier — the
// only thing this engine ever sees — is bound to the chosen plan, starting
// the trial clock. StartHostedCheckout delegates card collection entirely to
// the processor's hosted page and trusts nothing until the user returns and
// the snapshot is refetched.
//
// Quote-only plans (Club) are rejected by both entry points: they only ever
// become active through a manual sales process, never through this package.
package checkout
