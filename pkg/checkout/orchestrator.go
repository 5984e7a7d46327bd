package checkout

import (
	"context"
	"log/slog"

	"github.com/insightball/entitlements/pkg/billingapi"
	"github.com/insightball/entitlements/pkg/entitlement"
	"github.com/insightball/entitlements/pkg/trialstate"
)

// BackendAPI is the subset of the backend subscription API the orchestrator
// uses. Satisfied by *billingapi.Client.
type BackendAPI interface {
	CreateSetupIntent(ctx context.Context) (billingapi.SetupIntent, error)
	ConfirmPlan(ctx context.Context, req billingapi.ConfirmPlanRequest) error
	CreateCheckoutSession(ctx context.Context, req billingapi.CheckoutSessionRequest) (billingapi.RedirectSession, error)
	CreatePortalSession(ctx context.Context, returnURL string) (billingapi.RedirectSession, error)
}

// ReturnURLs are the full-navigation targets after a hosted checkout.
type ReturnURLs struct {
	Success string
	Cancel  string
}

// Confirmation reports a successfully attached payment method.
type Confirmation struct {
	PlanID          entitlement.PlanID
	PaymentMethodID string
}

// Orchestrator drives payment-method collection and hosted checkout.
type Orchestrator struct {
	api       BackendAPI
	processor ProcessorClient
	catalog   *entitlement.Catalog
	states    trialstate.Invalidator
	log       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// New creates an Orchestrator. Panics on nil dependencies to fail fast
// during initialization.
func New(api BackendAPI, processor ProcessorClient, catalog *entitlement.Catalog, states trialstate.Invalidator, opts ...Option) *Orchestrator {
	if api == nil {
		panic("checkout: BackendAPI is required")
	}
	if processor == nil {
		panic("checkout: ProcessorClient is required")
	}
	if catalog == nil {
		panic("checkout: plan catalog is required")
	}
	if states == nil {
		panic("checkout: trialstate.Invalidator is required")
	}

	o := &Orchestrator{
		api:       api,
		processor: processor,
		catalog:   catalog,
		states:    states,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AttachPaymentMethod saves a payment method and starts the plan's trial
// clock. No charge happens here; the first debit occurs at natural trial
// expiry, server-side.
//
// Failure handling follows the flow's position: a setup-intent creation
// failure aborts before any processor interaction, and a processor card
// error surfaces without invalidating the snapshot since nothing changed.
func (o *Orchestrator) AttachPaymentMethod(ctx context.Context, planID entitlement.PlanID, card CardDetails) (Confirmation, error) {
	plan, err := o.catalog.Billable(planID)
	if err != nil {
		return Confirmation{}, err
	}

	intent, err := o.api.CreateSetupIntent(ctx)
	if err != nil {
		return Confirmation{}, err
	}

	paymentMethodID, err := o.processor.ConfirmSetup(ctx, intent.ClientSecret, card)
	if err != nil {
		return Confirmation{}, err
	}

	if err := o.api.ConfirmPlan(ctx, billingapi.ConfirmPlanRequest{
		Plan:            string(plan.ID),
		PaymentMethodID: paymentMethodID,
	}); err != nil {
		// The processor may have saved the method even though the bind
		// failed; the refetch on the next read reflects whatever the
		// backend actually recorded.
		o.states.Invalidate(ctx)
		return Confirmation{}, err
	}

	o.states.Invalidate(ctx)
	o.log.InfoContext(ctx, "payment method attached, trial started",
		slog.String("component", "checkout"), slog.String("plan", string(plan.ID)))

	return Confirmation{PlanID: plan.ID, PaymentMethodID: paymentMethodID}, nil
}

// StartHostedCheckout returns the hosted checkout URL for a full-navigation
// redirect, used when card data should not be collected inline (e.g. resuming
// after trial expiry). No client state is trusted until the user returns and
// the snapshot is refetched.
func (o *Orchestrator) StartHostedCheckout(ctx context.Context, planID entitlement.PlanID, urls ReturnURLs) (string, error) {
	plan, err := o.catalog.Billable(planID)
	if err != nil {
		return "", err
	}
	if urls.Success == "" || urls.Cancel == "" {
		return "", ErrMissingReturnURLs
	}

	sess, err := o.api.CreateCheckoutSession(ctx, billingapi.CheckoutSessionRequest{
		Plan:       string(plan.ID),
		SuccessURL: urls.Success,
		CancelURL:  urls.Cancel,
	})
	if err != nil {
		return "", err
	}
	if sess.URL == "" {
		return "", ErrNoCheckoutURL
	}

	o.log.InfoContext(ctx, "hosted checkout session created",
		slog.String("component", "checkout"), slog.String("plan", string(plan.ID)))
	return sess.URL, nil
}

// PortalSession returns the self-service billing portal URL. Payment-method
// updates and plan changes made there are fully delegated to the processor.
func (o *Orchestrator) PortalSession(ctx context.Context, returnURL string) (string, error) {
	sess, err := o.api.CreatePortalSession(ctx, returnURL)
	if err != nil {
		return "", err
	}
	if sess.URL == "" {
		return "", ErrNoPortalURL
	}
	return sess.URL, nil
}
