package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-registry/pkg/registry"
	"github.com/tendant/simple-registry/pkg/registry/repo/memory"
)

// callbackLedger calls back into the service while a transfer is in flight.
type callbackLedger struct {
	svc      registry.Service
	callback func(ctx context.Context, svc registry.Service) error
	result   error
	calls    int
}

func (l *callbackLedger) Transfer(ctx context.Context, from, to common.Address, amount uint64) error {
	l.calls++
	if l.callback != nil {
		l.result = l.callback(ctx, l.svc)
	}
	return nil
}

func setupReentrantService(t *testing.T) (registry.Service, *callbackLedger) {
	t.Helper()
	ledger := &callbackLedger{}
	svc, err := registry.New(
		registry.WithRepository(memory.New()),
		registry.WithLedger(ledger),
		registry.WithOwner(owner),
	)
	require.NoError(t, err)
	ledger.svc = svc

	ctx := context.Background()
	require.NoError(t, svc.AddGovernanceMember(ctx, owner, memberA))
	_, err = svc.PublishContent(ctx, creator, registry.PublishContentRequest{ContentHash: "h", Title: "t", Price: 5})
	require.NoError(t, err)
	_, err = svc.CreateProposal(ctx, memberA, "raise fee")
	require.NoError(t, err)
	return svc, ledger
}

func TestReentrancy_GuardedOperationsFail(t *testing.T) {
	tests := []struct {
		name     string
		callback func(ctx context.Context, svc registry.Service) error
	}{
		{"publish", func(ctx context.Context, svc registry.Service) error {
			_, err := svc.PublishContent(ctx, creator, registry.PublishContentRequest{ContentHash: "h", Title: "t", Price: 1})
			return err
		}},
		{"view", func(ctx context.Context, svc registry.Service) error {
			return svc.ViewContent(ctx, viewer, 1, 5)
		}},
		{"rate", func(ctx context.Context, svc registry.Service) error {
			return svc.RateContent(ctx, viewer, 1, 5)
		}},
		{"execute", func(ctx context.Context, svc registry.Service) error {
			_, err := svc.ExecuteProposal(ctx, memberA, 1)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ledger := setupReentrantService(t)
			ctx := context.Background()
			ledger.callback = tt.callback

			require.NoError(t, svc.ViewContent(ctx, viewer, 1, 5))
			assert.ErrorIs(t, ledger.result, registry.ErrReentrancyDetected)

			// nothing the nested call would have written is visible
			c, err := svc.GetContent(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), c.Views)
			assert.Zero(t, c.TotalReviews)
			_, err = svc.GetContent(ctx, 2)
			assert.ErrorIs(t, err, registry.ErrContentNotFound)
			p, err := svc.GetProposal(ctx, 1)
			require.NoError(t, err)
			assert.False(t, p.Executed)

			// the latch is released once the outer call returns
			ledger.callback = nil
			require.NoError(t, svc.RateContent(ctx, viewer, 1, 4))
		})
	}
}

func TestReentrancy_UnguardedOperationsRunInline(t *testing.T) {
	svc, ledger := setupReentrantService(t)
	ctx := context.Background()

	ledger.callback = func(ctx context.Context, svc registry.Service) error {
		if err := svc.Vote(ctx, viewer, 1); err != nil {
			return err
		}
		c, err := svc.GetContent(ctx, 1)
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(1), c.Views, "view is committed before the transfer")
		return nil
	}

	require.NoError(t, svc.ViewContent(ctx, viewer, 1, 5))
	require.NoError(t, ledger.result)

	p, err := svc.GetProposal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Votes)
}

// viewWithin runs ViewContent and fails the test if it does not return in time.
func viewWithin(t *testing.T, svc registry.Service, d time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- svc.ViewContent(context.Background(), viewer, 1, 5)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatalf("ViewContent did not return within %s", d)
		return nil
	}
}

func TestReentrancy_FreshContextFailsFast(t *testing.T) {
	tests := []struct {
		name     string
		callback func(svc registry.Service) error
	}{
		{"publish", func(svc registry.Service) error {
			_, err := svc.PublishContent(context.Background(), creator, registry.PublishContentRequest{ContentHash: "h", Title: "t", Price: 1})
			return err
		}},
		{"view", func(svc registry.Service) error {
			return svc.ViewContent(context.Background(), viewer, 1, 5)
		}},
		{"rate", func(svc registry.Service) error {
			return svc.RateContent(context.Background(), viewer, 1, 5)
		}},
		{"execute", func(svc registry.Service) error {
			_, err := svc.ExecuteProposal(context.Background(), memberA, 1)
			return err
		}},
		{"vote", func(svc registry.Service) error {
			return svc.Vote(context.Background(), viewer, 1)
		}},
		{"toggle pause", func(svc registry.Service) error {
			_, err := svc.TogglePause(context.Background(), owner)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ledger := setupReentrantService(t)
			ledger.callback = func(_ context.Context, svc registry.Service) error {
				return tt.callback(svc)
			}

			require.NoError(t, viewWithin(t, svc, 2*time.Second))
			assert.ErrorIs(t, ledger.result, registry.ErrReentrancyDetected)

			ctx := context.Background()
			c, err := svc.GetContent(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), c.Views)
			assert.Zero(t, c.TotalReviews)
			p, err := svc.GetProposal(ctx, 1)
			require.NoError(t, err)
			assert.Zero(t, p.Votes)
			assert.False(t, p.Executed)
			paused, err := svc.Paused(ctx)
			require.NoError(t, err)
			assert.False(t, paused)

			// the lock and latch are released once the outer call returns
			ledger.callback = nil
			require.NoError(t, svc.RateContent(ctx, viewer, 1, 4))
		})
	}
}

func TestReentrancy_FreshContextReadSeesCommittedView(t *testing.T) {
	svc, ledger := setupReentrantService(t)

	var views uint64
	ledger.callback = func(_ context.Context, svc registry.Service) error {
		c, err := svc.GetContent(context.Background(), 1)
		if err != nil {
			return err
		}
		views = c.Views
		return nil
	}

	require.NoError(t, viewWithin(t, svc, 2*time.Second))
	require.NoError(t, ledger.result)
	assert.Equal(t, uint64(1), views)
}
