package billingapi

// TrialStatus is the backend's trial gate response.
type TrialStatus struct {
	Access    string `json:"access"` // "trial" | "full" | "expired"
	DaysLeft  int    `json:"days_left"`
	MatchUsed bool   `json:"match_used"`
}

// SubscriptionStatus is the backend's subscription record response.
type SubscriptionStatus struct {
	Active            bool   `json:"active"`
	Status            string `json:"status"` // "none" | "trialing" | "active" | "canceled"
	Plan              string `json:"plan"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *int64 `json:"current_period_end"` // unix seconds
}

// PaymentMethodStatus reports whether a payment method is on file.
type PaymentMethodStatus struct {
	HasPaymentMethod bool `json:"has_payment_method"`
}

// SetupIntent is the backend-issued intent the processor confirms client-side.
type SetupIntent struct {
	ClientSecret string `json:"client_secret"`
}

// ConfirmPlanRequest binds a payment method to a plan. When converting an
// active trial early this triggers an immediate charge, which is why the only
// caller is the double-confirmed plan confirmation flow (and checkout's
// payment-method attach at trial start, where no charge occurs).
type ConfirmPlanRequest struct {
	Plan            string `json:"plan"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// CheckoutSessionRequest asks the backend for a hosted checkout URL.
type CheckoutSessionRequest struct {
	Plan       string `json:"plan"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// RedirectSession is a hosted checkout or billing portal session.
type RedirectSession struct {
	URL string `json:"url"`
}

type portalSessionRequest struct {
	ReturnURL string `json:"return_url"`
}

type clubQuoteRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
