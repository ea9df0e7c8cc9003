package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashbots/aquanet/protocol"
)

func TestEmergencyAllocate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "drought basin", 8)
	require.NoError(t, f.coord.EmergencyAllocate(ctx, authority, regionID, 500))

	region, err := f.coord.Region(regionID)
	require.NoError(t, err)
	require.NotEqual(t, protocol.ZeroHandle, region.LockedAllocation)

	amount, err := f.engine.Read(region.LockedAllocation, manager)
	require.NoError(t, err)
	require.EqualValues(t, 500, amount)
}

// Scenario: an emergency allocation to a deactivated region is rejected.
func TestEmergencyAllocateRejectsInactiveRegion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, _ := f.registerRegion(t, "drought basin", 8)
	require.NoError(t, f.coord.DeactivateRegion(authority, regionID))

	err := f.coord.EmergencyAllocate(ctx, authority, regionID, 500)
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.Contains(t, err.Error(), "not active")
}

func TestEmergencyAllocatePreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	regionID, manager := f.registerRegion(t, "drought basin", 8)

	require.ErrorIs(t, f.coord.EmergencyAllocate(ctx, manager, regionID, 500), ErrNotAuthorized)
	require.ErrorIs(t, f.coord.EmergencyAllocate(ctx, authority, 99, 500), ErrNotFound)
	require.ErrorIs(t, f.coord.EmergencyAllocate(ctx, authority, regionID, 0), ErrValidation)
}
