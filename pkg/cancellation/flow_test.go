package cancellation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightball/entitlements/pkg/billingapi"
	"github.com/insightball/entitlements/pkg/cancellation"
	"github.com/insightball/entitlements/pkg/entitlement"
)

type fakeSnapshots struct {
	snap entitlement.Snapshot
	err  error
}

func (f *fakeSnapshots) Get(context.Context) (entitlement.Snapshot, error) {
	return f.snap, f.err
}

type fakeCanceler struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
}

func (f *fakeCanceler) CancelSubscription(context.Context) error {
	f.mu.Lock()
	f.calls++
	release := f.release
	err := f.err
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return err
}

func (f *fakeCanceler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type spyInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (s *spyInvalidator) Invalidate(context.Context) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *spyInvalidator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestFlow_Preview(t *testing.T) {
	t.Parallel()

	t.Run("trial cancellation warns about the unused match", func(t *testing.T) {
		t.Parallel()
		f := cancellation.NewFlow(&fakeCanceler{}, &fakeSnapshots{snap: entitlement.Snapshot{
			HasRecord:      true,
			Status:         entitlement.StatusTrialing,
			PlanID:         entitlement.PlanCoach,
			TrialDaysLeft:  4,
			TrialMatchUsed: false,
		}}, &spyInvalidator{})

		p, err := f.Preview(context.Background())
		require.NoError(t, err)
		assert.Equal(t, cancellation.KindTrial, p.Kind)
		assert.Contains(t, p.Message, "Aucun débit")
		assert.True(t, p.WarnUnusedBenefit)
	})

	t.Run("trial cancellation after the match was used", func(t *testing.T) {
		t.Parallel()
		f := cancellation.NewFlow(&fakeCanceler{}, &fakeSnapshots{snap: entitlement.Snapshot{
			HasRecord:      true,
			Status:         entitlement.StatusTrialing,
			TrialDaysLeft:  2,
			TrialMatchUsed: true,
		}}, &spyInvalidator{})

		p, err := f.Preview(context.Background())
		require.NoError(t, err)
		assert.Equal(t, cancellation.KindTrial, p.Kind)
		assert.False(t, p.WarnUnusedBenefit)
	})

	t.Run("paid cancellation keeps access until period end", func(t *testing.T) {
		t.Parallel()
		periodEnd := time.Now().Add(20 * 24 * time.Hour).UTC()
		f := cancellation.NewFlow(&fakeCanceler{}, &fakeSnapshots{snap: entitlement.Snapshot{
			HasRecord:        true,
			Status:           entitlement.StatusActive,
			PlanID:           entitlement.PlanCoach,
			HasPaymentMethod: true,
			CurrentPeriodEnd: &periodEnd,
		}}, &spyInvalidator{})

		p, err := f.Preview(context.Background())
		require.NoError(t, err)
		assert.Equal(t, cancellation.KindPaid, p.Kind)
		assert.Contains(t, p.Message, "fin de la période")
		require.NotNil(t, p.AccessUntil)
		assert.Equal(t, periodEnd, *p.AccessUntil)
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		t.Parallel()
		f := cancellation.NewFlow(&fakeCanceler{}, &fakeSnapshots{snap: entitlement.Snapshot{
			HasRecord: true,
			Status:    entitlement.StatusCanceled,
		}}, &spyInvalidator{})

		_, err := f.Preview(context.Background())
		assert.ErrorIs(t, err, cancellation.ErrNothingToCancel)
	})

	t.Run("strict read propagates unavailability", func(t *testing.T) {
		t.Parallel()
		f := cancellation.NewFlow(&fakeCanceler{}, &fakeSnapshots{err: billingapi.ErrUnavailable}, &spyInvalidator{})

		_, err := f.Preview(context.Background())
		assert.ErrorIs(t, err, billingapi.ErrUnavailable)
	})
}

func TestFlow_Execute(t *testing.T) {
	t.Parallel()

	trialing := &fakeSnapshots{snap: entitlement.Snapshot{HasRecord: true, Status: entitlement.StatusTrialing, TrialDaysLeft: 3}}

	t.Run("cancels once and invalidates", func(t *testing.T) {
		t.Parallel()
		api := &fakeCanceler{}
		states := &spyInvalidator{}
		f := cancellation.NewFlow(api, trialing, states)

		require.NoError(t, f.Execute(context.Background()))
		assert.Equal(t, 1, api.callCount())
		assert.Equal(t, 1, states.count())

		assert.ErrorIs(t, f.Execute(context.Background()), cancellation.ErrAlreadyCanceled)
		assert.Equal(t, 1, api.callCount())
	})

	t.Run("failure releases the latch and still invalidates", func(t *testing.T) {
		t.Parallel()
		api := &fakeCanceler{err: billingapi.ErrUnavailable}
		states := &spyInvalidator{}
		f := cancellation.NewFlow(api, trialing, states)

		assert.ErrorIs(t, f.Execute(context.Background()), billingapi.ErrUnavailable)
		// The backend may have processed the cancellation before the response
		// failed, so the next read must refetch instead of trusting the cache.
		assert.Equal(t, 1, states.count())

		// A new user-triggered attempt is allowed; nothing retries on its own.
		api.mu.Lock()
		api.err = nil
		api.mu.Unlock()
		require.NoError(t, f.Execute(context.Background()))
		assert.Equal(t, 2, api.callCount())
	})

	t.Run("concurrent execute is single-flight", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		api := &fakeCanceler{release: release}
		f := cancellation.NewFlow(api, trialing, &spyInvalidator{})

		firstDone := make(chan error, 1)
		go func() { firstDone <- f.Execute(context.Background()) }()

		require.Eventually(t, func() bool {
			return api.callCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
		assert.ErrorIs(t, f.Execute(context.Background()), cancellation.ErrCancelInFlight)

		close(release)
		require.NoError(t, <-firstDone)
		assert.Equal(t, 1, api.callCount())
	})
}
