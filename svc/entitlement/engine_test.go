package entitlement_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightball/entitlements/pkg/billingapi"
	"github.com/insightball/entitlements/pkg/checkout"
	core "github.com/insightball/entitlements/pkg/entitlement"
	"github.com/insightball/entitlements/pkg/planconfirm"
	"github.com/insightball/entitlements/pkg/session"
	entitlement "github.com/insightball/entitlements/svc/entitlement"
)

// fakeBackend is a scriptable subscription backend. It records every hit so
// tests can assert which endpoints a flow is able to reach.
type fakeBackend struct {
	mu   sync.Mutex
	hits map[string]int

	trial         billingapi.TrialStatus
	subscription  billingapi.SubscriptionStatus
	paymentMethod billingapi.PaymentMethodStatus
	checkoutURL   string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		hits: make(map[string]int),
		trial: billingapi.TrialStatus{
			Access:   "trial",
			DaysLeft: 5,
		},
		subscription: billingapi.SubscriptionStatus{
			Status: "trialing",
			Plan:   "coach",
		},
		checkoutURL: "https://pay.test/cs_1",
	}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/subscription/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.URL.Path]++
		trial, sub, pm := b.trial, b.subscription, b.paymentMethod
		checkoutURL := b.checkoutURL
		b.mu.Unlock()

		switch r.URL.Path {
		case "/subscription/trial-status":
			json.NewEncoder(w).Encode(trial)
		case "/subscription/subscription-status":
			json.NewEncoder(w).Encode(sub)
		case "/subscription/has-payment-method":
			json.NewEncoder(w).Encode(pm)
		case "/subscription/create-checkout-session":
			json.NewEncoder(w).Encode(billingapi.RedirectSession{URL: checkoutURL})
		case "/subscription/confirm-plan", "/subscription/cancel-subscription", "/subscription/request-club-quote":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func (b *fakeBackend) hitCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// setState swaps the scripted billing state, simulating a server-side
// transition between requests.
func (b *fakeBackend) setState(trial billingapi.TrialStatus, sub billingapi.SubscriptionStatus, pm bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = trial
	b.subscription = sub
	b.paymentMethod = billingapi.PaymentMethodStatus{HasPaymentMethod: pm}
}

type stubProcessor struct{}

func (stubProcessor) ConfirmSetup(context.Context, string, checkout.CardDetails) (string, error) {
	return "pm_stub", nil
}

func newEngine(t *testing.T, baseURL string) (*entitlement.Engine, *session.Session) {
	t.Helper()
	sess := session.New(uuid.New(), "token-1")
	eng, err := entitlement.New(entitlement.Config{
		Environment:     "test",
		LogFormat:       "text",
		BillingAPI:      billingapi.Config{BaseURL: baseURL, Timeout: 2 * time.Second},
		SnapshotTTL:     30 * time.Second,
		RefreshInterval: 10 * time.Millisecond,
	}, sess, entitlement.WithProcessor(stubProcessor{}))
	require.NoError(t, err)
	return eng, sess
}

func TestEngine_Decision(t *testing.T) {
	t.Parallel()

	t.Run("active trial gets trial access", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		d, err := eng.Decision(context.Background())
		require.NoError(t, err)
		assert.Equal(t, core.LevelTrialActive, d.Level)
		assert.True(t, d.CanView)
		assert.True(t, d.CanConsume)
	})

	t.Run("backend outage fails open for viewing", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		d, err := eng.Decision(context.Background())
		require.NoError(t, err)
		assert.True(t, d.CanView)
		assert.False(t, d.Degraded)
	})

	t.Run("backend outage fails closed for actions", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		_, err := eng.Authorize(context.Background())
		assert.ErrorIs(t, err, billingapi.ErrUnavailable)
	})

	t.Run("expired trial is denied with the lapsed reason", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		backend.setState(
			billingapi.TrialStatus{Access: "expired", DaysLeft: 0, MatchUsed: true},
			billingapi.SubscriptionStatus{Status: "trialing", Plan: "coach"},
			false,
		)
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		d, err := eng.Authorize(context.Background())
		denied, ok := entitlement.IsDenied(err)
		require.True(t, ok)
		assert.ErrorIs(t, err, entitlement.ErrDenied)
		assert.Equal(t, core.ReasonTrialLapsed, denied.Reason)
		assert.NotEmpty(t, denied.Message)
		assert.Equal(t, core.LevelExpired, d.Level)
		assert.True(t, d.Degraded)
	})
}

// A lapsed trial resumes through hosted checkout: degraded view, redirect
// out, then full access once the backend reflects the paid subscription.
func TestEngine_ResumeAfterExpiry(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	backend.setState(
		billingapi.TrialStatus{Access: "expired"},
		billingapi.SubscriptionStatus{Status: "trialing", Plan: "coach"},
		false,
	)
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	eng, _ := newEngine(t, srv.URL)
	ctx := context.Background()

	d, err := eng.Decision(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.LevelExpired, d.Level)
	assert.True(t, d.Degraded)

	url, err := eng.StartHostedCheckout(ctx, core.PlanCoach, checkoutURLs())
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/cs_1", url)

	// The user pays on the hosted page and returns; the backend now holds a
	// paid subscription and the app invalidates on redirect return.
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	backend.setState(
		billingapi.TrialStatus{Access: "full"},
		billingapi.SubscriptionStatus{Active: true, Status: "active", Plan: "coach", CurrentPeriodEnd: &periodEnd},
		true,
	)
	eng.Invalidate(ctx)

	d, err = eng.Authorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.LevelFull, d.Level)
	assert.True(t, d.CanConsume)
}

// The club tier is contact-sales only: the quote request reaches nothing
// but the quote endpoint, and every charge-capable path rejects the plan.
func TestEngine_ClubQuoteNeverBills(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	eng, _ := newEngine(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, eng.RequestClubQuote(ctx, "Nous avons 12 équipes."))
	assert.True(t, eng.QuoteRequested())

	_, err := eng.NewPlanConfirmation(core.PlanClub)
	assert.ErrorIs(t, err, core.ErrPlanNotBillable)

	_, err = eng.StartHostedCheckout(ctx, core.PlanClub, checkoutURLs())
	assert.ErrorIs(t, err, core.ErrPlanNotBillable)

	assert.Equal(t, 1, backend.hitCount("/subscription/request-club-quote"))
	assert.Zero(t, backend.hitCount("/subscription/confirm-plan"))
	assert.Zero(t, backend.hitCount("/subscription/create-checkout-session"))
	assert.Zero(t, backend.hitCount("/subscription/create-setup-intent"))
}

func TestEngine_PlanConfirmationInvalidates(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	eng, _ := newEngine(t, srv.URL)
	ctx := context.Background()

	// Prime the cache, then confirm a plan; the snapshot must be refetched
	// on the next read rather than served stale.
	_, err := eng.Snapshot(ctx)
	require.NoError(t, err)
	fetchesBefore := backend.hitCount("/subscription/trial-status")

	flow, err := eng.NewPlanConfirmation(core.PlanCoach)
	require.NoError(t, err)
	require.NoError(t, flow.Proceed())
	flow.SetInput(planconfirm.ConfirmToken)
	require.NoError(t, flow.Submit(ctx))

	assert.Equal(t, 1, backend.hitCount("/subscription/confirm-plan"))

	_, err = eng.Snapshot(ctx)
	require.NoError(t, err)
	assert.Greater(t, backend.hitCount("/subscription/trial-status"), fetchesBefore)
}

func TestEngine_CancellationScenarios(t *testing.T) {
	t.Parallel()

	t.Run("trial cancellation warns and cancels without charging", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		ctx := context.Background()

		flow := eng.NewCancellation()
		p, err := flow.Preview(ctx)
		require.NoError(t, err)
		assert.Contains(t, p.Message, "Aucun débit")
		assert.True(t, p.WarnUnusedBenefit)

		require.NoError(t, flow.Execute(ctx))
		assert.Equal(t, 1, backend.hitCount("/subscription/cancel-subscription"))
	})

	t.Run("paid cancellation keeps access until period end", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		periodEnd := time.Now().Add(12 * 24 * time.Hour).Unix()
		backend.setState(
			billingapi.TrialStatus{Access: "full"},
			billingapi.SubscriptionStatus{Active: true, Status: "active", Plan: "coach", CurrentPeriodEnd: &periodEnd},
			true,
		)
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		p, err := eng.NewCancellation().Preview(context.Background())
		require.NoError(t, err)
		assert.Contains(t, p.Message, "fin de la période")
		require.NotNil(t, p.AccessUntil)
	})
}

func TestEngine_Banner(t *testing.T) {
	t.Parallel()

	t.Run("shows the countdown with the unused-benefit hint", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		backend.setState(
			billingapi.TrialStatus{Access: "trial", DaysLeft: 3, MatchUsed: false},
			billingapi.SubscriptionStatus{Status: "trialing", Plan: "coach"},
			false,
		)
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		got := eng.Banner(context.Background())
		assert.Contains(t, got, "3 jours restants")
		assert.Contains(t, got, core.UnusedBenefitHint)
	})

	t.Run("countdown only once the match is used", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		backend.setState(
			billingapi.TrialStatus{Access: "trial", DaysLeft: 1, MatchUsed: true},
			billingapi.SubscriptionStatus{Status: "trialing", Plan: "coach"},
			false,
		)
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		got := eng.Banner(context.Background())
		assert.Equal(t, core.BannerText(1), got)
	})

	t.Run("no banner for paid subscribers", func(t *testing.T) {
		t.Parallel()
		backend := newFakeBackend()
		periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
		backend.setState(
			billingapi.TrialStatus{Access: "full"},
			billingapi.SubscriptionStatus{Active: true, Status: "active", Plan: "coach", CurrentPeriodEnd: &periodEnd},
			true,
		)
		srv := httptest.NewServer(backend.handler())
		defer srv.Close()

		eng, _ := newEngine(t, srv.URL)
		assert.Empty(t, eng.Banner(context.Background()))
	})
}

func TestEngine_SessionExpiry(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	eng, sess := newEngine(t, srv.URL)

	expired := false
	sess.OnExpired(func() { expired = true })

	_, err := eng.Snapshot(context.Background())
	assert.ErrorIs(t, err, billingapi.ErrSessionExpired)
	assert.True(t, expired)
}

func TestEngine_RunSuppressedWhileFlowOpen(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	eng, _ := newEngine(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flow, err := eng.NewPlanConfirmation(core.PlanCoach)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	// With the flow open the refresher must stay quiet.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, backend.hitCount("/subscription/trial-status"))

	// Completing the flow re-enables the refresh loop.
	require.NoError(t, flow.Proceed())
	flow.SetInput(planconfirm.ConfirmToken)
	require.NoError(t, flow.Submit(ctx))

	require.Eventually(t, func() bool {
		return backend.hitCount("/subscription/trial-status") > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestEngine_RunResumesAfterAbandonedFlow(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	eng, _ := newEngine(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flow, err := eng.NewPlanConfirmation(core.PlanCoach)
	require.NoError(t, err)
	require.NoError(t, flow.Proceed())

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, backend.hitCount("/subscription/trial-status"))

	// The user dismisses the dialog without submitting; the refresher must
	// come back instead of staying suppressed for the rest of the session.
	require.NoError(t, flow.Abandon())

	require.Eventually(t, func() bool {
		return backend.hitCount("/subscription/trial-status") > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestEngine_RunDefaultsRefreshInterval(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	// Config built directly, without LoadConfig's env defaults.
	sess := session.New(uuid.New(), "token-1")
	eng, err := entitlement.New(entitlement.Config{
		LogFormat:  "text",
		BillingAPI: billingapi.Config{BaseURL: srv.URL, Timeout: 2 * time.Second},
	}, sess, entitlement.WithProcessor(stubProcessor{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, eng.Run(ctx), context.Canceled)
	})
}

func checkoutURLs() checkout.ReturnURLs {
	return checkout.ReturnURLs{
		Success: "https://app.test/dashboard?payment=success",
		Cancel:  "https://app.test/plans?payment=cancelled",
	}
}
