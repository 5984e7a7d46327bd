// Package planconfirm implements the double-confirmation flow that guards
// plan changes against accidental charges.
//
// # Flow
//
// A Flow walks a fixed state machine: Summary, TypedConfirmation, Submitting,
// Done. The user reviews the plan summary, types the confirmation token
// verbatim, and only then can Submit fire the charge-binding call. Submission
// is single-flight and never retried automatically; a failed submission
// re-arms the typed-confirmation step with the input cleared and the error
// retained for display. Done is terminal, and a dismissed dialog is closed
// through Abandon so nothing keeps treating the flow as in progress.
//
// # Usage
//
//	flow, err := planconfirm.New(api, catalog, states, entitlement.PlanCoach)
//	if err != nil {
//		return err
//	}
//	flow.Proceed()
//	flow.SetInput(userInput)
//	if flow.CanSubmit() {
//		err = flow.Submit(ctx)
//	}
package planconfirm
