package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/insightball/entitlements/pkg/billingapi"
	"github.com/insightball/entitlements/pkg/cancellation"
	"github.com/insightball/entitlements/pkg/checkout"
	"github.com/insightball/entitlements/pkg/entitlement"
	"github.com/insightball/entitlements/pkg/logger"
	"github.com/insightball/entitlements/pkg/planconfirm"
	"github.com/insightball/entitlements/pkg/session"
	"github.com/insightball/entitlements/pkg/trialstate"
)

// Engine is the composition root the product embeds. One engine serves one
// signed-in account.
type Engine struct {
	sess     *session.Session
	api      *billingapi.Client
	states   *trialstate.Provider
	catalog  *entitlement.Catalog
	checkout *checkout.Orchestrator
	quotes   *cancellation.QuoteWorkflow
	log      *slog.Logger

	refreshInterval time.Duration

	mu    sync.Mutex
	flows []*planconfirm.Flow
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	processor checkout.ProcessorClient
	log       *slog.Logger
	store     trialstate.Store
}

// WithProcessor overrides the payment processor client. Used by tests and
// by deployments that front the processor with their own client.
func WithProcessor(p checkout.ProcessorClient) Option {
	return func(o *engineOptions) {
		o.processor = p
	}
}

// WithLogger sets the structured logger, bypassing the one built from Config.
func WithLogger(log *slog.Logger) Option {
	return func(o *engineOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithStore overrides the snapshot store built from Config.
func WithStore(s trialstate.Store) Option {
	return func(o *engineOptions) {
		if s != nil {
			o.store = s
		}
	}
}

// New builds the engine from configuration. The session must already hold
// the account's credentials; its expiry hook fires when the backend answers
// 401 anywhere.
func New(cfg Config, sess *session.Session, opts ...Option) (*Engine, error) {
	if sess == nil {
		panic("entitlement: session is required")
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log
	if log == nil {
		log = logger.New(
			logger.WithFormat(logger.Format(cfg.LogFormat)),
			logger.WithLevel(cfg.LogLevel),
			logger.WithService("entitlements", cfg.Environment),
		)
	}

	api := billingapi.New(cfg.BillingAPI, sess,
		billingapi.WithLogger(log),
		billingapi.WithUnauthorizedHook(sess.Expire),
	)

	stateOpts := []trialstate.Option{
		trialstate.WithTTL(cfg.SnapshotTTL),
		trialstate.WithLogger(log),
	}
	switch {
	case o.store != nil:
		stateOpts = append(stateOpts, trialstate.WithStore(o.store))
	case cfg.RedisURL != "":
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Join(errors.New("entitlement: parse redis url"), err)
		}
		stateOpts = append(stateOpts, trialstate.WithStore(trialstate.NewRedisStore(redis.NewClient(redisOpts))))
	}
	states := trialstate.New(api, sess.AccountID().String(), stateOpts...)

	catalog, err := loadCatalog(cfg.PlansFile)
	if err != nil {
		return nil, err
	}

	processor := o.processor
	if processor == nil {
		processor, err = checkout.NewStripeProcessor(cfg.Stripe)
		if err != nil {
			return nil, err
		}
	}

	refreshInterval := cfg.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}

	return &Engine{
		sess:            sess,
		api:             api,
		states:          states,
		catalog:         catalog,
		checkout:        checkout.New(api, processor, catalog, states, checkout.WithLogger(log)),
		quotes:          cancellation.NewQuoteWorkflow(api, cancellation.WithQuoteLogger(log)),
		log:             log,
		refreshInterval: refreshInterval,
	}, nil
}

func loadCatalog(plansFile string) (*entitlement.Catalog, error) {
	if plansFile == "" {
		return entitlement.NewCatalog(context.Background(), entitlement.NewInMemSource(entitlement.DefaultPlans()...))
	}
	f, err := os.Open(plansFile)
	if err != nil {
		return nil, errors.Join(errors.New("entitlement: open plans file"), err)
	}
	defer f.Close()
	return entitlement.NewCatalog(context.Background(), entitlement.NewYAMLSource(f))
}

// Catalog exposes the validated plan catalog for pricing screens.
func (e *Engine) Catalog() *entitlement.Catalog {
	return e.catalog
}

// Decision resolves what the current account may see. This is the view
// path: when the backend is unreachable it evaluates a permissive snapshot
// instead of failing, so transient outages never blank the product.
func (e *Engine) Decision(ctx context.Context) (entitlement.Decision, error) {
	snap, err := e.states.ViewSnapshot(ctx)
	if err != nil {
		return entitlement.Decision{}, err
	}
	return entitlement.Evaluate(snap, time.Now().UTC()), nil
}

// Authorize gates an entitlement-consuming action. Strict on purpose: it
// refetches through the normal TTL path and refuses on any backend error
// rather than guessing. A refusal carries the reason and display message.
func (e *Engine) Authorize(ctx context.Context) (entitlement.Decision, error) {
	snap, err := e.states.Get(ctx)
	if err != nil {
		return entitlement.Decision{}, err
	}
	d := entitlement.Evaluate(snap, time.Now().UTC())
	if !d.CanConsume {
		return d, &DeniedError{Reason: d.Reason, Message: d.Message}
	}
	return d, nil
}

// Snapshot returns the strict snapshot for screens that show raw billing
// state, like the subscription settings page.
func (e *Engine) Snapshot(ctx context.Context) (entitlement.Snapshot, error) {
	return e.states.Get(ctx)
}

// Banner returns the trial countdown text, with the unused-benefit hint
// appended when it applies, or empty when no banner should show. Served from
// the view path so an outage hides the banner instead of erroring the whole
// screen.
func (e *Engine) Banner(ctx context.Context) string {
	snap, err := e.states.ViewSnapshot(ctx)
	if err != nil {
		return ""
	}
	if !snap.IsTrialing() {
		return ""
	}
	text := entitlement.BannerText(snap.TrialDaysLeft)
	if hint := entitlement.TrialHint(snap); hint != "" {
		text += " " + hint
	}
	return text
}

// AttachPaymentMethod saves a card and starts the plan's trial clock.
func (e *Engine) AttachPaymentMethod(ctx context.Context, planID entitlement.PlanID, card checkout.CardDetails) (checkout.Confirmation, error) {
	return e.checkout.AttachPaymentMethod(ctx, planID, card)
}

// StartHostedCheckout returns the hosted checkout URL for resuming a lapsed
// account through a full-navigation redirect.
func (e *Engine) StartHostedCheckout(ctx context.Context, planID entitlement.PlanID, urls checkout.ReturnURLs) (string, error) {
	return e.checkout.StartHostedCheckout(ctx, planID, urls)
}

// PortalSession returns the self-service billing portal URL.
func (e *Engine) PortalSession(ctx context.Context, returnURL string) (string, error) {
	return e.checkout.PortalSession(ctx, returnURL)
}

// NewPlanConfirmation opens a double-confirmation flow for a plan change.
// While any such flow is open the background banner refresh is suspended so
// the state the user is confirming against cannot shift mid-dialog.
func (e *Engine) NewPlanConfirmation(planID entitlement.PlanID, opts ...planconfirm.Option) (*planconfirm.Flow, error) {
	opts = append(opts, planconfirm.WithLogger(e.log))
	flow, err := planconfirm.New(e.api, e.catalog, e.states, planID, opts...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.flows = append(e.flows, flow)
	e.mu.Unlock()
	return flow, nil
}

// NewCancellation opens a cancellation flow.
func (e *Engine) NewCancellation() *cancellation.Flow {
	return cancellation.NewFlow(e.api, e.states, e.states, cancellation.WithLogger(e.log))
}

// RequestClubQuote sends a contact-sales lead for the club tier.
func (e *Engine) RequestClubQuote(ctx context.Context, message string) error {
	return e.quotes.Request(ctx, message)
}

// QuoteRequested reports whether a club quote was sent this session.
func (e *Engine) QuoteRequested() bool {
	return e.quotes.Requested()
}

// Invalidate drops the cached snapshot so the next read refetches. Exposed
// for app-level events like returning from a hosted checkout redirect.
func (e *Engine) Invalidate(ctx context.Context) {
	e.states.Invalidate(ctx)
}

// Run refreshes the cached snapshot on a ticker so countdown banners track
// server state without user interaction. Suspended while a confirmation
// flow is open. Blocks until the context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if e.confirmationOpen() {
				continue
			}
			e.states.Invalidate(ctx)
			if _, err := e.states.ViewSnapshot(ctx); err != nil {
				e.log.WarnContext(ctx, "banner refresh failed",
					logger.Component("engine"), logger.Error(err))
			}
		}
	}
}

// confirmationOpen reports whether any registered confirmation flow is
// still in progress, pruning completed ones.
func (e *Engine) confirmationOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	open := e.flows[:0]
	for _, f := range e.flows {
		if f.Open() {
			open = append(open, f)
		}
	}
	e.flows = open
	return len(e.flows) > 0
}
