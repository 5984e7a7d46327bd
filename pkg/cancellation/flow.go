package cancellation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/insightball/entitlements/pkg/entitlement"
	"github.com/insightball/entitlements/pkg/trialstate"
)

// French copy shown in the cancellation dialogs.
const (
	msgTrialCancel = "Votre essai sera interrompu immédiatement. Aucun débit n'aura lieu."
	msgPaidCancel  = "Votre abonnement ne sera pas renouvelé. Vous conservez l'accès jusqu'à la fin de la période en cours."
)

// Kind distinguishes the two cancellation variants.
type Kind string

const (
	KindTrial Kind = "trial"
	KindPaid  Kind = "paid"
)

// Preview is what the confirmation dialog shows before the user commits.
type Preview struct {
	Kind    Kind
	Message string
	// WarnUnusedBenefit is set for trial cancellations when the free match
	// has not been used yet. Display-only; it changes nothing server-side.
	WarnUnusedBenefit bool
	// AccessUntil is the end of the already-paid period, when known.
	AccessUntil *time.Time
}

// SnapshotSource provides the strict entitlement snapshot. Satisfied by
// *trialstate.Provider.
type SnapshotSource interface {
	Get(ctx context.Context) (entitlement.Snapshot, error)
}

// Canceler is the single backend operation the flow may reach. Satisfied by
// *billingapi.Client.
type Canceler interface {
	CancelSubscription(ctx context.Context) error
}

// Flow drives one cancellation from preview to execution. Execution is
// single-flight and happens at most once per flow.
type Flow struct {
	mu       sync.Mutex
	busy     bool
	executed bool

	snapshots SnapshotSource
	api       Canceler
	states    trialstate.Invalidator
	log       *slog.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Flow) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFlow creates a cancellation flow. Panics on nil dependencies to fail
// fast during initialization.
func NewFlow(api Canceler, snapshots SnapshotSource, states trialstate.Invalidator, opts ...Option) *Flow {
	if api == nil {
		panic("cancellation: Canceler is required")
	}
	if snapshots == nil {
		panic("cancellation: SnapshotSource is required")
	}
	if states == nil {
		panic("cancellation: trialstate.Invalidator is required")
	}

	f := &Flow{
		snapshots: snapshots,
		api:       api,
		states:    states,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Preview reads the strict snapshot and returns the dialog variant. The
// read is strict on purpose: showing "no charge will occur" against stale
// state would be a billing statement the backend never made.
func (f *Flow) Preview(ctx context.Context) (Preview, error) {
	snap, err := f.snapshots.Get(ctx)
	if err != nil {
		return Preview{}, err
	}

	switch {
	case snap.IsTrialing():
		return Preview{
			Kind:              KindTrial,
			Message:           msgTrialCancel,
			WarnUnusedBenefit: !snap.TrialMatchUsed,
		}, nil
	case snap.Status == entitlement.StatusActive:
		return Preview{
			Kind:        KindPaid,
			Message:     msgPaidCancel,
			AccessUntil: snap.CurrentPeriodEnd,
		}, nil
	default:
		return Preview{}, ErrNothingToCancel
	}
}

// Execute performs the cancellation, once. Never retried automatically; a
// failed attempt releases the latch so the user can trigger it again.
func (f *Flow) Execute(ctx context.Context) error {
	f.mu.Lock()
	if f.executed {
		f.mu.Unlock()
		return ErrAlreadyCanceled
	}
	if f.busy {
		f.mu.Unlock()
		return ErrCancelInFlight
	}
	f.busy = true
	f.mu.Unlock()

	err := f.api.CancelSubscription(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		// The backend may have recorded the cancellation even though the
		// response failed; the next read refetches what it actually holds.
		f.states.Invalidate(ctx)
		return err
	}

	f.executed = true
	f.states.Invalidate(ctx)
	f.log.InfoContext(ctx, "subscription canceled", slog.String("component", "cancellation"))
	return nil
}
