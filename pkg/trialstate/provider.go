package trialstate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/insightball/entitlements/pkg/billingapi"
	"github.com/insightball/entitlements/pkg/entitlement"
)

// DefaultTTL keeps a snapshot for the lifetime of a typical screen. No
// background polling happens here; banners that want fresher data refresh
// through the composition layer.
const DefaultTTL = 30 * time.Second

// Source is the subset of the backend API the provider reads. Satisfied by
// *billingapi.Client.
type Source interface {
	TrialStatus(ctx context.Context) (billingapi.TrialStatus, error)
	SubscriptionStatus(ctx context.Context) (billingapi.SubscriptionStatus, error)
	HasPaymentMethod(ctx context.Context) (billingapi.PaymentMethodStatus, error)
}

// Invalidator is the part of the provider mutating flows depend on.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Provider fetches and caches the account's subscription snapshot.
type Provider struct {
	src      Source
	store    Store
	key      string
	ttl      time.Duration
	failOpen bool
	log      *slog.Logger

	// Guards the fetch so concurrent readers trigger one request.
	mu sync.Mutex
}

// New creates a Provider for one account. Panics on nil dependencies to fail
// fast during initialization.
func New(src Source, accountKey string, opts ...Option) *Provider {
	if src == nil {
		panic("trialstate: Source is required")
	}
	if accountKey == "" {
		panic("trialstate: account key is required")
	}

	p := &Provider{
		src:      src,
		store:    NewMemoryStore(),
		key:      accountKey,
		ttl:      DefaultTTL,
		failOpen: true,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the cached snapshot if fresh, fetching otherwise. It fails
// strictly: mutating flows must never act on a fabricated snapshot.
func (p *Provider) Get(ctx context.Context) (entitlement.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, err := p.store.Get(ctx, p.key); err == nil && cached != nil {
		return *cached, nil
	} else if err != nil {
		// A broken cache never blocks a read, it only costs a refetch.
		p.log.WarnContext(ctx, "snapshot cache read failed", slog.Any("error", err))
	}

	snap, err := p.fetch(ctx)
	if err != nil {
		return entitlement.Snapshot{}, err
	}

	if err := p.store.Set(ctx, p.key, snap, p.ttl); err != nil {
		p.log.WarnContext(ctx, "snapshot cache write failed", slog.Any("error", err))
	}
	return snap, nil
}

// ViewSnapshot returns the snapshot for view gating. Under the default
// fail-open policy a fetch failure yields a permissive trial-equivalent
// snapshot so transient errors never lock a paying user out of reading the
// dashboard; the error is still returned under WithFailClosed.
func (p *Provider) ViewSnapshot(ctx context.Context) (entitlement.Snapshot, error) {
	snap, err := p.Get(ctx)
	if err == nil {
		return snap, nil
	}
	if !p.failOpen {
		return entitlement.Snapshot{}, err
	}

	p.log.WarnContext(ctx, "trial status fetch failed, failing open for view gating", slog.Any("error", err))
	return permissiveSnapshot(), nil
}

// Invalidate forces the next Get to refetch. Called by every mutating flow
// after completion; client state is never trusted as post-write truth.
func (p *Provider) Invalidate(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Delete(ctx, p.key); err != nil {
		p.log.WarnContext(ctx, "snapshot cache invalidation failed", slog.Any("error", err))
	}
}

func (p *Provider) fetch(ctx context.Context) (entitlement.Snapshot, error) {
	trial, err := p.src.TrialStatus(ctx)
	if err != nil {
		return entitlement.Snapshot{}, err
	}
	sub, err := p.src.SubscriptionStatus(ctx)
	if err != nil {
		return entitlement.Snapshot{}, err
	}
	pm, err := p.src.HasPaymentMethod(ctx)
	if err != nil {
		return entitlement.Snapshot{}, err
	}
	return compose(trial, sub, pm), nil
}

// compose folds the three backend responses into the canonical snapshot. The
// client never infers transitions the backend has not reported; fields are
// copied, not derived.
func compose(trial billingapi.TrialStatus, sub billingapi.SubscriptionStatus, pm billingapi.PaymentMethodStatus) entitlement.Snapshot {
	snap := entitlement.Snapshot{
		HasRecord:         sub.Status != "" && sub.Status != string(entitlement.StatusNone),
		Status:            entitlement.StatusNone,
		PlanID:            entitlement.PlanNone,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		HasPaymentMethod:  pm.HasPaymentMethod,
		TrialDaysLeft:     trial.DaysLeft,
		TrialMatchUsed:    trial.MatchUsed,
	}
	if sub.Status != "" {
		snap.Status = entitlement.SubscriptionStatus(sub.Status)
	}
	if sub.Plan != "" {
		snap.PlanID = entitlement.PlanID(sub.Plan)
	}
	if sub.CurrentPeriodEnd != nil {
		end := time.Unix(*sub.CurrentPeriodEnd, 0).UTC()
		snap.CurrentPeriodEnd = &end
	}
	return snap
}

// permissiveSnapshot is the fail-open fallback, equivalent to the backend
// answering "trial access". It grants a readable dashboard, nothing more:
// action gating always goes through the strict Get.
func permissiveSnapshot() entitlement.Snapshot {
	return entitlement.Snapshot{
		HasRecord:        true,
		Status:           entitlement.StatusTrialing,
		PlanID:           entitlement.PlanCoach,
		HasPaymentMethod: true,
		TrialDaysLeft:    1,
	}
}
