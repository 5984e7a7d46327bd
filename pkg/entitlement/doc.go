// Package entitlement computes what an account is allowed to do from its
// subscription snapshot.
//
// The package is deliberately pure: Evaluate is a function of a Snapshot and a
// wall-clock instant, performs no I/O, and holds no state. Fetching and caching
// snapshots is the job of pkg/trialstate; this package only decides.
//
// # Access levels and gates
//
// Evaluate derives a coarse AccessLevel (no trial, trial active, expired, full)
// and two independent gates from the same snapshot:
//
//   - The view gate is soft: an expired account still mounts protected pages,
//     visually degraded, so no in-progress work is lost.
//   - The action gate is hard: quota-consuming actions (starting a new match
//     analysis) require a paid, current subscription or an unused trial
//     benefit. Denials carry a distinct reason so the product can show the
//     right copy instead of a generic "forbidden".
//
// # Usage
//
//	snap, _ := provider.Get(ctx)
//	d := entitlement.Evaluate(snap, time.Now())
//	if d.Degraded {
//	    // render blurred with upgrade overlay
//	}
//	if !d.CanConsume {
//	    // surface d.Message, keyed by d.Reason
//	}
//
// The plan catalog (Coach, Club) also lives here so that every component shares
// one definition of which plans exist and which of them may ever be billed
// automatically.
package entitlement
