package coordinator

import (
	"context"
	"fmt"

	"github.com/flashbots/aquanet/protocol"
)

// EmergencyAllocate grants a region an ad-hoc allocation outside the period
// lifecycle. Authority-only; intended for drought or infrastructure
// emergencies where waiting for the next period is not an option. The
// amount is encrypted like any other allocation and readable only by the
// region's manager.
func (c *Coordinator) EmergencyAllocate(ctx context.Context, caller protocol.Principal, regionID protocol.RegionID, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.authority {
		return unauthorizedf("only the authority may allocate directly")
	}
	region, ok := c.regions[regionID]
	if !ok {
		return notFoundf("region %d", regionID)
	}
	if !region.Active {
		return unauthorizedf("region %d not active", regionID)
	}
	if amount == 0 {
		return validationf("allocation amount cannot be zero")
	}

	handle, err := c.engine.Encrypt(ctx, amount)
	if err != nil {
		return fmt.Errorf("encrypting emergency allocation: %w", err)
	}
	if err := c.engine.GrantAccess(ctx, handle, region.Manager); err != nil {
		return fmt.Errorf("granting allocation access: %w", err)
	}

	region.LockedAllocation = handle
	region.UpdatedAt = c.now()

	c.emit(protocol.Event{Type: protocol.EventAllocationCompleted, Region: regionID})
	c.log.Info("emergency allocation completed", "region", regionID)
	return nil
}
