package coordinator

import (
	"context"

	"github.com/flashbots/aquanet/protocol"
)

// ClaimRevealTimeout declares a stalled reveal failed. Callable by anyone
// once the reveal timeout has elapsed since the decryption call was issued;
// a stalled engine must never permanently lock consumer standing. Marks the
// period failed and flags every live, unprocessed request refund-eligible.
func (c *Coordinator) ClaimRevealTimeout(ctx context.Context, periodID protocol.PeriodID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.periods[periodID]
	if !ok {
		return notFoundf("period %d", periodID)
	}
	if p.RevealRequestedAt.IsZero() {
		return conflictf("no reveal was requested for period %d", periodID)
	}
	if p.DistributionCompleted {
		return conflictf("period %d already distributed", periodID)
	}

	now := c.now()
	if now.Before(p.RevealRequestedAt.Add(c.cfg.RevealTimeout)) {
		return conflictf("timeout not reached for period %d", periodID)
	}

	if p.PendingReveal != "" {
		if reveal, ok := c.reveals[p.PendingReveal]; ok {
			reveal.Completed = true
		}
		p.PendingReveal = ""
	}
	p.DecryptionFailed = true

	c.emit(protocol.Event{Type: protocol.EventTimeoutTriggered, Period: periodID})
	c.log.Warn("reveal timeout triggered", "period", periodID)

	for _, regionID := range p.Participants {
		req := c.requests[requestKey{period: periodID, region: regionID}]
		if req == nil || req.Processed || req.RefundClaimed {
			continue
		}
		if !now.Before(req.ExpiresAt) {
			continue
		}
		c.markRefunded(ctx, req)
	}
	return nil
}

// ClaimFailureRefund lets a region's manager recover standing from a failed
// period. Succeeds at most once per (region, period); a second claim is a
// conflict.
func (c *Coordinator) ClaimFailureRefund(ctx context.Context, caller protocol.Principal, periodID protocol.PeriodID, regionID protocol.RegionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	region, ok := c.regions[regionID]
	if !ok {
		return notFoundf("region %d", regionID)
	}
	if caller != region.Manager {
		return unauthorizedf("caller is not the manager of region %d", regionID)
	}

	p, ok := c.periods[periodID]
	if !ok {
		return notFoundf("period %d", periodID)
	}
	if !p.DecryptionFailed {
		return conflictf("period %d is not marked failed", periodID)
	}

	req, ok := c.requests[requestKey{period: periodID, region: regionID}]
	if !ok {
		return notFoundf("request (%d, %d)", periodID, regionID)
	}
	if req.RefundClaimed {
		return conflictf("refund already claimed for region %d in period %d", regionID, periodID)
	}
	if req.Processed {
		return conflictf("request already processed for region %d in period %d", regionID, periodID)
	}

	c.markRefunded(ctx, req)
	return nil
}

// CanClaimTimeoutRefund is the pure eligibility check combining the
// ClaimRevealTimeout conditions for one manager, for client-side polling.
// It never mutates state.
func (c *Coordinator) CanClaimTimeoutRefund(periodID protocol.PeriodID, manager protocol.Principal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.periods[periodID]
	if !ok {
		return false
	}
	if p.DistributionCompleted || p.RevealRequestedAt.IsZero() {
		return false
	}

	now := c.now()
	if !p.DecryptionFailed && now.Before(p.RevealRequestedAt.Add(c.cfg.RevealTimeout)) {
		return false
	}

	for _, regionID := range p.Participants {
		region := c.regions[regionID]
		if region == nil || region.Manager != manager {
			continue
		}
		req := c.requests[requestKey{period: periodID, region: regionID}]
		if req == nil || req.Processed || req.RefundClaimed {
			continue
		}
		if now.Before(req.ExpiresAt) {
			return true
		}
	}
	return false
}

// markRefunded flips the refund flag, emits the refund signal and forwards
// it to the settlement executor. Callers must hold c.mu and have checked
// the request is neither processed nor already claimed.
func (c *Coordinator) markRefunded(ctx context.Context, req *protocol.ResourceRequest) {
	req.RefundClaimed = true

	c.emit(protocol.Event{Type: protocol.EventRefundProcessed, Period: req.Period, Region: req.Region})
	c.log.Info("refund processed", "period", req.Period, "region", req.Region)

	if c.settlement != nil {
		if err := c.settlement.ProcessRefund(ctx, req.Region, req.Period); err != nil {
			c.log.Error("settlement refund failed", "period", req.Period, "region", req.Region, "err", err)
		}
	}
}
