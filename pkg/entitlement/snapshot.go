package entitlement

import "time"

// SubscriptionStatus is the backend's view of the subscription record state.
type SubscriptionStatus string

const (
	StatusNone     SubscriptionStatus = "none"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusCanceled SubscriptionStatus = "canceled"
)

// PlanID identifies a subscription plan.
type PlanID string

const (
	PlanNone  PlanID = "none"
	PlanCoach PlanID = "coach"
	PlanClub  PlanID = "club"
)

// Snapshot is the backend's current view of an account's subscription, trial
// and payment-method state. The client holds a short-lived read-through copy;
// it is never mutated locally. Every billing mutation ends with an
// invalidate-and-refetch of this value.
type Snapshot struct {
	HasRecord         bool
	Status            SubscriptionStatus
	PlanID            PlanID
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time // nil when the backend reports no period end
	HasPaymentMethod  bool
	TrialDaysLeft     int
	TrialMatchUsed    bool // the one analysis included in the trial
}

// IsTrialing reports whether the subscription record is in trial status.
func (s Snapshot) IsTrialing() bool {
	return s.Status == StatusTrialing
}

// IsCurrentAt reports whether the subscription is active and not past its
// period end at the given instant. A scheduled cancellation
// (CancelAtPeriodEnd) never revokes access before CurrentPeriodEnd, so it is
// intentionally not consulted here.
func (s Snapshot) IsCurrentAt(now time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	if s.CurrentPeriodEnd == nil {
		return true
	}
	return now.Before(*s.CurrentPeriodEnd)
}
