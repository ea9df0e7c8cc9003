package coordinator

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flashbots/aquanet/testutil"
)

func TestSubmitRequestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)

	require.ErrorIs(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 0, 50), ErrValidation)
	require.ErrorIs(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, math.MaxUint64/2+1, 50), ErrValidation)
	require.ErrorIs(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 0), ErrValidation)
	require.ErrorIs(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 101), ErrValidation)

	// Boundary scores succeed; use two regions to avoid the duplicate check.
	require.NoError(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 1))
	otherID, otherManager := f.registerRegion(t, "south basin", 5)
	require.NoError(t, f.coord.SubmitRequest(ctx, otherManager, periodID, otherID, 100, 100))
}

func TestSubmitRequestAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, _ := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)

	stranger, _ := testutil.NewManager(t)
	require.ErrorIs(t, f.coord.SubmitRequest(ctx, stranger, periodID, regionID, 100, 50), ErrNotAuthorized)
	require.ErrorIs(t, f.coord.SubmitRequest(ctx, stranger, periodID, 99, 100, 50), ErrNotFound)
}

func TestSubmitRequestRejectedForInactiveRegion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)

	require.NoError(t, f.coord.DeactivateRegion(authority, regionID))
	require.ErrorIs(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 50), ErrNotAuthorized)
}

func TestSubmitRequestRejectedOutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 1)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.ErrorIs(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 50), ErrConflict)
}

// Scenario: a duplicate submission from the same region in the same period
// is rejected with a conflict, leaving the first request untouched.
func TestSubmitRequestRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)

	require.NoError(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 100, 50))
	first, err := f.coord.Request(periodID, regionID)
	require.NoError(t, err)

	require.ErrorIs(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 999, 99), ErrConflict)

	unchanged, err := f.coord.Request(periodID, regionID)
	require.NoError(t, err)
	require.Equal(t, first, unchanged)

	period, err := f.coord.Period(periodID)
	require.NoError(t, err)
	require.Equal(t, 1, period.ParticipantCount())
}

func TestSubmitRequestSetsExpiryAndGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "north basin", 5)
	periodID, err := f.coord.StartPeriod(ctx, authority, 10000, 24)
	require.NoError(t, err)
	require.NoError(t, f.coord.SubmitRequest(ctx, manager, periodID, regionID, 250, 60))

	req, err := f.coord.Request(periodID, regionID)
	require.NoError(t, err)
	require.Equal(t, req.SubmittedAt.Add(7*24*time.Hour), req.ExpiresAt)
	require.False(t, req.Processed)
	require.False(t, req.RefundClaimed)

	// The manager can read their own handles; nobody else can.
	amount, err := f.engine.Read(req.EncryptedAmount, manager)
	require.NoError(t, err)
	require.EqualValues(t, 250, amount)

	stranger, _ := testutil.NewManager(t)
	_, err = f.engine.Read(req.EncryptedAmount, stranger)
	require.Error(t, err)
}
