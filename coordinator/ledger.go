package coordinator

import (
	"context"
	"fmt"

	"github.com/flashbots/aquanet/protocol"
)

// SubmitRequest records one confidential resource request for the caller's
// region in an active period. The cleartext amount and score are converted
// to ciphertext handles immediately and never stored; the manager is granted
// read access to their own handles.
func (c *Coordinator) SubmitRequest(ctx context.Context, caller protocol.Principal, periodID protocol.PeriodID, regionID protocol.RegionID, amount uint64, score uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	region, ok := c.regions[regionID]
	if !ok {
		return notFoundf("region %d", regionID)
	}
	if !region.Active {
		return unauthorizedf("region %d not active", regionID)
	}
	if caller != region.Manager {
		return unauthorizedf("caller is not the manager of region %d", regionID)
	}

	p, ok := c.periods[periodID]
	if !ok {
		return notFoundf("period %d", periodID)
	}
	now := c.now()
	if !c.periodActiveAt(p, now) {
		return conflictf("period %d not accepting requests", periodID)
	}

	if amount == 0 {
		return validationf("requested amount cannot be zero")
	}
	if amount > c.cfg.MaxRequestAmount {
		return validationf("requested amount exceeds %d", c.cfg.MaxRequestAmount)
	}
	if score < c.cfg.MinScore || score > c.cfg.MaxScore {
		return validationf("justification score %d outside [%d, %d]", score, c.cfg.MinScore, c.cfg.MaxScore)
	}

	key := requestKey{period: periodID, region: regionID}
	if _, exists := c.requests[key]; exists {
		return conflictf("region %d already submitted for period %d", regionID, periodID)
	}

	amountHandle, err := c.engine.Encrypt(ctx, amount)
	if err != nil {
		return fmt.Errorf("encrypting requested amount: %w", err)
	}
	scoreHandle, err := c.engine.Encrypt(ctx, uint64(score))
	if err != nil {
		return fmt.Errorf("encrypting justification score: %w", err)
	}
	if err := c.engine.GrantAccess(ctx, amountHandle, region.Manager); err != nil {
		return fmt.Errorf("granting amount access: %w", err)
	}
	if err := c.engine.GrantAccess(ctx, scoreHandle, region.Manager); err != nil {
		return fmt.Errorf("granting score access: %w", err)
	}

	c.requests[key] = &protocol.ResourceRequest{
		Period:          periodID,
		Region:          regionID,
		EncryptedAmount: amountHandle,
		EncryptedScore:  scoreHandle,
		SubmittedAt:     now,
		ExpiresAt:       now.Add(c.cfg.RequestValidity),
	}
	p.Participants = append(p.Participants, regionID)
	region.UpdatedAt = now

	c.emit(protocol.Event{Type: protocol.EventRequestSubmitted, Period: periodID, Region: regionID})
	c.log.Info("request submitted", "period", periodID, "region", regionID)
	return nil
}

// Request returns a copy of the stored request record.
func (c *Coordinator) Request(periodID protocol.PeriodID, regionID protocol.RegionID) (protocol.ResourceRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.requests[requestKey{period: periodID, region: regionID}]
	if !ok {
		return protocol.ResourceRequest{}, notFoundf("request (%d, %d)", periodID, regionID)
	}
	return *req, nil
}
