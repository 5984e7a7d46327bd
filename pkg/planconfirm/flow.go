package planconfirm

import (
	"context"
	"log/slog"
	"sync"

	"github.com/insightball/entitlements/pkg/billingapi"
	"github.com/insightball/entitlements/pkg/entitlement"
	"github.com/insightball/entitlements/pkg/trialstate"
)

// State identifies a step of the confirmation flow.
type State string

const (
	StateSummary           State = "summary"
	StateTypedConfirmation State = "typed_confirmation"
	StateSubmitting        State = "submitting"
	StateDone              State = "done"
	StateAbandoned         State = "abandoned"
)

// ConfirmToken is the exact text the user must type to unlock submission.
// Matching is case-sensitive and whitespace is not trimmed.
const ConfirmToken = "CONFIRMER"

// Submitter is the single backend operation this flow may reach. Satisfied
// by *billingapi.Client.
type Submitter interface {
	ConfirmPlan(ctx context.Context, req billingapi.ConfirmPlanRequest) error
}

// Flow drives one plan confirmation from summary to completion. Safe for
// concurrent use; submission is single-flight.
type Flow struct {
	mu      sync.Mutex
	state   State
	input   string
	lastErr error

	plan            entitlement.Plan
	paymentMethodID string
	api             Submitter
	states          trialstate.Invalidator
	log             *slog.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithPaymentMethodID forwards an already-saved payment method with the
// confirmation. Empty means the backend uses the method on file.
func WithPaymentMethodID(id string) Option {
	return func(f *Flow) {
		f.paymentMethodID = id
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Flow) {
		if log != nil {
			f.log = log
		}
	}
}

// New creates a Flow for the given plan, starting at the summary step.
// Quote-only plans are rejected here so the flow can never bind a charge
// for them. Panics on nil dependencies to fail fast during initialization.
func New(api Submitter, catalog *entitlement.Catalog, states trialstate.Invalidator, planID entitlement.PlanID, opts ...Option) (*Flow, error) {
	if api == nil {
		panic("planconfirm: Submitter is required")
	}
	if catalog == nil {
		panic("planconfirm: plan catalog is required")
	}
	if states == nil {
		panic("planconfirm: trialstate.Invalidator is required")
	}

	plan, err := catalog.Billable(planID)
	if err != nil {
		return nil, err
	}

	f := &Flow{
		state:  StateSummary,
		plan:   plan,
		api:    api,
		states: states,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// State returns the current step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Plan returns the plan under confirmation, for the summary screen.
func (f *Flow) Plan() entitlement.Plan {
	return f.plan
}

// Open reports whether the flow is still in progress. The engine suppresses
// background snapshot refreshes while a flow is open so the screen the user
// is confirming against cannot change under them.
func (f *Flow) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != StateDone && f.state != StateAbandoned
}

// Abandon closes a flow the user dismissed without submitting, so nothing
// keeps treating the dialog as open. Terminal like Done; no-op when already
// closed. Cannot interrupt an in-flight submission.
func (f *Flow) Abandon() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateDone, StateAbandoned:
		return nil
	case StateSubmitting:
		return ErrSubmitInFlight
	}
	f.state = StateAbandoned
	f.input = ""
	return nil
}

// Err returns the last submission failure, retained for display while the
// user re-types the token. Cleared on Reset.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Proceed moves from the summary to the typed-confirmation step.
func (f *Flow) Proceed() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateSummary:
		f.state = StateTypedConfirmation
		return nil
	case StateDone:
		return ErrFlowDone
	case StateAbandoned:
		return ErrFlowAbandoned
	case StateSubmitting:
		return ErrSubmitInFlight
	default:
		return nil // already awaiting confirmation
	}
}

// SetInput records the text typed so far. Stored verbatim; CanSubmit does
// the comparison.
func (f *Flow) SetInput(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = text
}

// Input returns the current typed text.
func (f *Flow) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// CanSubmit reports whether the submit control should be enabled: the flow
// is awaiting confirmation and the typed text matches ConfirmToken exactly.
func (f *Flow) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateTypedConfirmation && f.input == ConfirmToken
}

// Submit fires the confirmation. The backend is called at most once per
// call and never retried; on failure the flow returns to the
// typed-confirmation step with the input cleared and the error retained.
// On success the cached snapshot is invalidated and the flow completes.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case StateDone:
		f.mu.Unlock()
		return ErrFlowDone
	case StateAbandoned:
		f.mu.Unlock()
		return ErrFlowAbandoned
	case StateSubmitting:
		f.mu.Unlock()
		return ErrSubmitInFlight
	case StateSummary:
		f.mu.Unlock()
		return ErrNotConfirmable
	}
	if f.input != ConfirmToken {
		f.mu.Unlock()
		return ErrTokenMismatch
	}
	f.state = StateSubmitting
	req := billingapi.ConfirmPlanRequest{
		Plan:            string(f.plan.ID),
		PaymentMethodID: f.paymentMethodID,
	}
	f.mu.Unlock()

	err := f.api.ConfirmPlan(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		// The backend may have recorded a partial change; the next read
		// refetches whatever it actually holds.
		f.states.Invalidate(ctx)
		f.state = StateTypedConfirmation
		f.input = ""
		f.lastErr = err
		return err
	}

	f.states.Invalidate(ctx)
	f.state = StateDone
	f.lastErr = nil
	f.log.InfoContext(ctx, "plan confirmed",
		slog.String("component", "planconfirm"), slog.String("plan", string(f.plan.ID)))
	return nil
}

// Reset returns an in-progress flow to the summary step, clearing input and
// any retained error. A completed flow cannot be reset; start a new one.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateDone:
		return ErrFlowDone
	case StateAbandoned:
		return ErrFlowAbandoned
	case StateSubmitting:
		return ErrSubmitInFlight
	}
	f.state = StateSummary
	f.input = ""
	f.lastErr = nil
	return nil
}
