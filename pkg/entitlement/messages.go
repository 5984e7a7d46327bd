package entitlement

import "fmt"

// Product copy is French, matching the rest of the application.
const (
	msgNoTrial         = "Aucun essai en cours — ajoutez un moyen de paiement pour démarrer votre essai gratuit."
	msgTrialLapsed     = "Votre période d'essai est terminée. Choisissez un plan pour continuer."
	msgBenefitUsed     = "Votre match offert a été utilisé. Activez le plan Coach pour débloquer 4 matchs par mois."
	msgNoPaymentMethod = "Aucun moyen de paiement enregistré. Ajoutez une carte pour continuer."

	// UnusedBenefitHint is shown while trialing when the included analysis
	// has not been consumed yet.
	UnusedBenefitHint = "Votre match offert n'a pas encore été utilisé."
)

func denialMessage(reason DenialReason) string {
	switch reason {
	case ReasonNoTrial:
		return msgNoTrial
	case ReasonTrialLapsed:
		return msgTrialLapsed
	case ReasonBenefitUsed:
		return msgBenefitUsed
	case ReasonNoPaymentMethod:
		return msgNoPaymentMethod
	default:
		return ""
	}
}

// BannerText returns the trial countdown banner copy for the given number of
// days left, pluralized the way the product displays it.
func BannerText(daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return "Essai gratuit — expire aujourd'hui"
	case daysLeft == 1:
		return "Essai gratuit — 1 jour restant"
	default:
		return fmt.Sprintf("Essai gratuit — %d jours restants", daysLeft)
	}
}

// TrialHint returns the unused-benefit hint when the snapshot is trialing and
// the included analysis is still available, empty otherwise. This is a UX
// hint only; it never participates in gating.
func TrialHint(snap Snapshot) string {
	if snap.IsTrialing() && !snap.TrialMatchUsed {
		return UnusedBenefitHint
	}
	return ""
}
