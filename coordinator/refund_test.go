package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flashbots/aquanet/protocol"
)

// startPendingReveal opens a period with one request and an outstanding
// reveal, returning the ids involved.
func startPendingReveal(t *testing.T, f *fixture) (protocol.PeriodID, protocol.RegionID, protocol.Principal) {
	t.Helper()
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)
	require.NoError(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 50))
	_, err = f.coord.RequestDistribution(ctx, authority, periodID)
	require.NoError(t, err)

	return periodID, regionID, manager
}

// Scenario: the timeout boundary is exact. One second before the reveal
// timeout the claim is rejected; one second later it succeeds and the
// period is failed.
func TestClaimRevealTimeoutBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	periodID, regionID, _ := startPendingReveal(t, f)

	f.clock.Advance(24*time.Hour - time.Second)
	err := f.coord.ClaimRevealTimeout(ctx, periodID)
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "timeout not reached")

	f.clock.Advance(time.Second)
	require.NoError(t, f.coord.ClaimRevealTimeout(ctx, periodID))

	period, err := f.coord.Period(periodID)
	require.NoError(t, err)
	require.True(t, period.DecryptionFailed)
	require.False(t, period.RevealOutstanding())

	// The participant's request was refunded and settlement signalled.
	req, err := f.coord.Request(periodID, regionID)
	require.NoError(t, err)
	require.True(t, req.RefundClaimed)
	require.False(t, req.Processed)
	require.Equal(t, 1, f.settlement.Count())
}

func TestClaimRevealTimeoutPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Unknown period.
	require.ErrorIs(t, f.coord.ClaimRevealTimeout(ctx, 99), ErrNotFound)

	// No reveal ever requested.
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)
	require.ErrorIs(t, f.coord.ClaimRevealTimeout(ctx, periodID), ErrConflict)
}

func TestClaimRevealTimeoutRejectedAfterDistribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	periodID, _, _ := startPendingReveal(t, f)

	period, err := f.coord.Period(periodID)
	require.NoError(t, err)
	require.NoError(t, f.engine.Deliver(ctx, period.PendingReveal, f.coord))

	f.clock.Advance(25 * time.Hour)
	require.ErrorIs(t, f.coord.ClaimRevealTimeout(ctx, periodID), ErrConflict)
}

func TestClaimRevealTimeoutSkipsExpiredRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	periodID, regionID, _ := startPendingReveal(t, f)

	// Past the request's own 7-day validity, the refund is not marked.
	f.clock.Advance(8 * 24 * time.Hour)
	require.NoError(t, f.coord.ClaimRevealTimeout(ctx, periodID))

	req, err := f.coord.Request(periodID, regionID)
	require.NoError(t, err)
	require.False(t, req.RefundClaimed)
	require.Equal(t, 0, f.settlement.Count())
}

// Idempotence: the second failure-refund claim for the same (region,
// period) is rejected with a conflict.
func TestClaimFailureRefundOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)
	require.NoError(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 50))

	correlation, err := f.coord.RequestDistribution(ctx, authority, periodID)
	require.NoError(t, err)
	f.engine.FailReveals(true)
	require.NoError(t, f.engine.Deliver(ctx, correlation, f.coord))

	require.NoError(t, f.coord.ClaimFailureRefund(ctx, manager, periodID, regionID))
	require.ErrorIs(t, f.coord.ClaimFailureRefund(ctx, manager, periodID, regionID), ErrConflict)
	require.Equal(t, 1, f.settlement.Count())

	// Processed and RefundClaimed stay mutually exclusive.
	req, err := f.coord.Request(periodID, regionID)
	require.NoError(t, err)
	require.True(t, req.RefundClaimed)
	require.False(t, req.Processed)
}

func TestClaimFailureRefundPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)
	require.NoError(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 50))

	// Period not failed yet.
	require.ErrorIs(t, f.coord.ClaimFailureRefund(ctx, manager, periodID, regionID), ErrConflict)

	correlation, err := f.coord.RequestDistribution(ctx, authority, periodID)
	require.NoError(t, err)
	f.engine.FailReveals(true)
	require.NoError(t, f.engine.Deliver(ctx, correlation, f.coord))

	// Wrong caller.
	require.ErrorIs(t, f.coord.ClaimFailureRefund(ctx, authority, periodID, regionID), ErrNotAuthorized)

	// Region that never submitted.
	otherID, otherManager := f.registerRegion(t, "south basin", 5)
	require.ErrorIs(t, f.coord.ClaimFailureRefund(ctx, otherManager, periodID, otherID), ErrNotFound)
}

func TestCanClaimTimeoutRefund(t *testing.T) {
	f := newFixture(t)

	periodID, _, manager := startPendingReveal(t, f)

	// Not yet: timeout not reached.
	require.False(t, f.coord.CanClaimTimeoutRefund(periodID, manager))

	f.clock.Advance(24 * time.Hour)
	require.True(t, f.coord.CanClaimTimeoutRefund(periodID, manager))

	// A stranger has nothing to claim.
	require.False(t, f.coord.CanClaimTimeoutRefund(periodID, "someone-else"))

	// After the claim runs, eligibility is consumed.
	require.NoError(t, f.coord.ClaimRevealTimeout(context.Background(), periodID))
	require.False(t, f.coord.CanClaimTimeoutRefund(periodID, manager))

	// Unknown period is simply ineligible.
	require.False(t, f.coord.CanClaimTimeoutRefund(99, manager))
}

// Refunds after a timeout leave later distribution impossible, preserving
// the processed/refunded exclusivity even if the engine answers late.
func TestLateRevealAfterTimeoutDoesNotAllocate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	periodID, regionID, _ := startPendingReveal(t, f)

	period, err := f.coord.Period(periodID)
	require.NoError(t, err)
	correlation := period.PendingReveal

	f.clock.Advance(25 * time.Hour)
	require.NoError(t, f.coord.ClaimRevealTimeout(ctx, periodID))

	// The engine finally answers; the reveal was consumed by the timeout.
	require.ErrorIs(t, f.engine.Deliver(ctx, correlation, f.coord), ErrConflict)

	req, err := f.coord.Request(periodID, regionID)
	require.NoError(t, err)
	require.True(t, req.RefundClaimed)
	require.False(t, req.Processed)
}
