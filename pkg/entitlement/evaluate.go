package entitlement

import "time"

// AccessLevel is the coarse permission tier derived from a snapshot.
type AccessLevel string

const (
	// LevelNoTrial means the account never started: no payment method on
	// file and no active or trialing record.
	LevelNoTrial AccessLevel = "no_trial"
	// LevelTrialActive means the trial clock is running.
	LevelTrialActive AccessLevel = "trial_active"
	// LevelExpired means the trial elapsed (or the subscription lapsed)
	// without a paid plan taking over.
	LevelExpired AccessLevel = "expired"
	// LevelFull means paid and current.
	LevelFull AccessLevel = "full"
)

// DenialReason explains why the action gate denies. The product shows
// different copy per reason; they are never merged into one generic denial.
type DenialReason string

const (
	ReasonNone            DenialReason = ""
	ReasonNoTrial         DenialReason = "no_trial"
	ReasonTrialLapsed     DenialReason = "trial_lapsed"
	ReasonBenefitUsed     DenialReason = "benefit_used"
	ReasonNoPaymentMethod DenialReason = "no_payment_method"
)

// Decision is the result of evaluating a snapshot: the access level plus the
// two gates the product derives from it. CanView and CanConsume are
// independent tiers of strictness over the same level; under LevelExpired the
// page still mounts (degraded) while quota actions are denied.
type Decision struct {
	Level AccessLevel

	// View gate (soft). Degraded means the protected page renders blurred
	// behind an upgrade overlay instead of being blocked outright.
	CanView  bool
	Degraded bool

	// Action gate (hard), for quota-consuming operations.
	CanConsume bool
	Reason     DenialReason
	// Message is the user-facing copy for Reason, empty when allowed.
	Message string
}

// Evaluate computes the access decision for a snapshot at the given instant.
// It is pure and idempotent: same snapshot and same now, same decision. It
// must be re-run on every protected-route entry rather than cached beyond the
// snapshot's own TTL.
//
// Level rules, first match wins:
//  1. active and not past period end      -> full
//  2. trialing with days remaining        -> trial active
//  3. no payment method, no live record   -> no trial
//  4. otherwise                           -> expired
func Evaluate(snap Snapshot, now time.Time) Decision {
	level := levelOf(snap, now)

	d := Decision{
		Level:   level,
		CanView: true,
	}

	switch level {
	case LevelFull:
		if snap.HasPaymentMethod {
			d.CanConsume = true
		} else {
			d.deny(ReasonNoPaymentMethod)
		}
	case LevelTrialActive:
		if snap.TrialMatchUsed {
			d.deny(ReasonBenefitUsed)
		} else {
			d.CanConsume = true
		}
	case LevelNoTrial:
		d.deny(ReasonNoTrial)
	case LevelExpired:
		d.Degraded = true
		d.deny(ReasonTrialLapsed)
	}

	return d
}

func levelOf(snap Snapshot, now time.Time) AccessLevel {
	if snap.IsCurrentAt(now) {
		return LevelFull
	}
	if snap.IsTrialing() && snap.TrialDaysLeft > 0 {
		return LevelTrialActive
	}
	// A trialing record at zero days is a lapsed trial, not "never started";
	// the backend decides its transition, the client never pre-empts it.
	if !snap.HasPaymentMethod && snap.Status != StatusActive && snap.Status != StatusTrialing {
		return LevelNoTrial
	}
	return LevelExpired
}

func (d *Decision) deny(reason DenialReason) {
	d.CanConsume = false
	d.Reason = reason
	d.Message = denialMessage(reason)
}
