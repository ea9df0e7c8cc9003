package coordinator

import (
	"github.com/flashbots/aquanet/protocol"
)

// RegisterRegion creates a new consumer region. Authority-only. Region IDs
// are assigned sequentially from 1 and never reused.
func (c *Coordinator) RegisterRegion(caller protocol.Principal, name string, priority uint8, manager protocol.Principal) (protocol.RegionID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.authority {
		return 0, unauthorizedf("only the authority may register regions")
	}
	if name == "" {
		return 0, validationf("region name cannot be empty")
	}
	if priority < c.cfg.MinPriority || priority > c.cfg.MaxPriority {
		return 0, validationf("priority %d outside [%d, %d]", priority, c.cfg.MinPriority, c.cfg.MaxPriority)
	}
	if manager == "" {
		return 0, validationf("manager cannot be empty")
	}

	id := c.nextRegion
	c.nextRegion++
	c.regions[id] = &protocol.Region{
		ID:        id,
		Name:      name,
		Priority:  priority,
		Manager:   manager,
		Active:    true,
		UpdatedAt: c.now(),
	}
	c.activeRegions++

	c.emit(protocol.Event{Type: protocol.EventRegionRegistered, Region: id})
	c.log.Info("region registered", "region", id, "name", name, "priority", priority)
	return id, nil
}

// DeactivateRegion logically deletes a region. Authority-only. The record
// stays so historical periods still resolve it; only new requests are
// forbidden.
func (c *Coordinator) DeactivateRegion(caller protocol.Principal, id protocol.RegionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.authority {
		return unauthorizedf("only the authority may deactivate regions")
	}
	region, ok := c.regions[id]
	if !ok {
		return notFoundf("region %d", id)
	}
	if !region.Active {
		return conflictf("region %d already inactive", id)
	}

	region.Active = false
	region.UpdatedAt = c.now()
	c.activeRegions--

	c.emit(protocol.Event{Type: protocol.EventRegionDeactivated, Region: id})
	c.log.Info("region deactivated", "region", id)
	return nil
}

// UpdateManager replaces a region's manager principal.
func (c *Coordinator) UpdateManager(caller protocol.Principal, id protocol.RegionID, newManager protocol.Principal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.authority {
		return unauthorizedf("only the authority may update managers")
	}
	region, ok := c.regions[id]
	if !ok {
		return notFoundf("region %d", id)
	}
	if newManager == "" {
		return validationf("manager cannot be empty")
	}

	region.Manager = newManager
	region.UpdatedAt = c.now()

	c.emit(protocol.Event{Type: protocol.EventManagerUpdated, Region: id})
	c.log.Info("region manager updated", "region", id)
	return nil
}

// Region returns a copy of the region record.
func (c *Coordinator) Region(id protocol.RegionID) (protocol.Region, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	region, ok := c.regions[id]
	if !ok {
		return protocol.Region{}, notFoundf("region %d", id)
	}
	return *region, nil
}

// ActiveRegionCount returns the incrementally maintained count of active
// regions.
func (c *Coordinator) ActiveRegionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeRegions
}
