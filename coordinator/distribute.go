package coordinator

import (
	"context"
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/flashbots/aquanet/protocol"
)

// distribute converts a revealed total into per-region allocations,
// iterating the participant list in submission order. Callers must hold
// c.mu and have verified the reveal.
//
// Each allocation is bounded by half the remaining pool, so no single
// region can drain it and observers cannot recover exact demand from the
// outcome. The amount is mixed from (region, iteration index, entropy):
// identical inputs need not repeat identical outputs across runs, which
// deliberately severs the visible link between a request's cleartext inputs
// and its allocation. Iteration halts once the pool cannot fund another
// allocation; unreached requests stay unprocessed and become refund-eligible
// on a later timeout.
func (c *Coordinator) distribute(ctx context.Context, p *protocol.AllocationPeriod, revealedTotal uint64) {
	remaining := revealedTotal
	seed := c.entropy.Uint64()

	for idx, regionID := range p.Participants {
		maxShare := remaining / 2
		if maxShare == 0 {
			break
		}

		req := c.requests[requestKey{period: p.ID, region: regionID}]
		if req == nil || req.Processed || req.RefundClaimed {
			continue
		}

		region := c.regions[regionID]
		amount := 1 + allocationMix(seed, regionID, uint64(idx))%maxShare

		handle, err := c.engine.Encrypt(ctx, amount)
		if err != nil {
			c.log.Error("encrypting allocation failed, halting distribution",
				"period", p.ID, "region", regionID, "err", err)
			return
		}
		if err := c.engine.GrantAccess(ctx, handle, region.Manager); err != nil {
			c.log.Error("granting allocation access failed",
				"period", p.ID, "region", regionID, "err", err)
		}

		region.LockedAllocation = handle
		region.UpdatedAt = c.now()
		req.Processed = true
		remaining -= amount

		c.emit(protocol.Event{Type: protocol.EventAllocationCompleted, Period: p.ID, Region: regionID})
		c.log.Info("allocation completed", "period", p.ID, "region", regionID)
	}
}

// allocationMix derives a pseudo-random value from the entropy seed, the
// region and its iteration index.
func allocationMix(seed uint64, region protocol.RegionID, index uint64) uint64 {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], seed)
	binary.BigEndian.PutUint64(buf[8:16], uint64(region))
	binary.BigEndian.PutUint64(buf[16:24], index)

	digest := sha3.Sum256(buf[:])
	return binary.BigEndian.Uint64(digest[:8])
}
