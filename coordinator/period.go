package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/flashbots/aquanet/protocol"
)

// StartPeriod opens a new allocation period. Authority-only. The total
// available resource is stored encrypted; only its aggregate is ever
// revealed. Rejected while a prior period is still accepting requests or
// awaiting a reveal.
func (c *Coordinator) StartPeriod(ctx context.Context, caller protocol.Principal, totalResource uint64, durationHours uint32) (protocol.PeriodID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.authority {
		return 0, unauthorizedf("only the authority may start periods")
	}
	if totalResource == 0 {
		return 0, validationf("total resource cannot be zero")
	}
	if durationHours < c.cfg.MinPeriodHours || durationHours > c.cfg.MaxPeriodHours {
		return 0, validationf("duration %dh outside [%dh, %dh]", durationHours, c.cfg.MinPeriodHours, c.cfg.MaxPeriodHours)
	}

	now := c.now()
	for _, p := range c.periods {
		if c.periodActiveAt(p, now) {
			return 0, conflictf("period %d still active", p.ID)
		}
		if p.RevealOutstanding() {
			return 0, conflictf("period %d awaiting reveal", p.ID)
		}
	}

	totalHandle, err := c.engine.Encrypt(ctx, totalResource)
	if err != nil {
		return 0, fmt.Errorf("encrypting period total: %w", err)
	}

	id := c.nextPeriod
	c.nextPeriod++
	c.periods[id] = &protocol.AllocationPeriod{
		ID:             id,
		Start:          now,
		End:            now.Add(time.Duration(durationHours) * time.Hour),
		EncryptedTotal: totalHandle,
	}

	c.emit(protocol.Event{Type: protocol.EventPeriodStarted, Period: id})
	c.log.Info("period started", "period", id, "duration_hours", durationHours)
	return id, nil
}

// Period returns a copy of the period record.
func (c *Coordinator) Period(id protocol.PeriodID) (protocol.AllocationPeriod, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.periods[id]
	if !ok {
		return protocol.AllocationPeriod{}, notFoundf("period %d", id)
	}
	out := *p
	out.Participants = append([]protocol.RegionID(nil), p.Participants...)
	return out, nil
}

// PeriodActive reports whether the period currently accepts requests.
func (c *Coordinator) PeriodActive(id protocol.PeriodID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.periods[id]
	if !ok {
		return false, notFoundf("period %d", id)
	}
	return c.periodActiveAt(p, c.now()), nil
}

// periodActiveAt reports whether now falls within the intake window of a
// period that has not reached a terminal state. A failed period never
// accepts requests again; its only exit is the refund path. Callers must
// hold c.mu.
func (c *Coordinator) periodActiveAt(p *protocol.AllocationPeriod, now time.Time) bool {
	if p.DistributionCompleted || p.DecryptionFailed {
		return false
	}
	return !now.Before(p.Start) && !now.After(p.End)
}

// RequestDistribution closes intake and asks the engine to reveal the
// period's aggregate total. Authority-only. The reveal is asynchronous; the
// engine answers through OnRevealResult, or ClaimRevealTimeout fires after
// the reveal timeout.
func (c *Coordinator) RequestDistribution(ctx context.Context, caller protocol.Principal, id protocol.PeriodID) (protocol.CorrelationID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.authority {
		return "", unauthorizedf("only the authority may request distribution")
	}
	p, ok := c.periods[id]
	if !ok {
		return "", notFoundf("period %d", id)
	}
	if p.ParticipantCount() == 0 {
		return "", conflictf("period %d has no participants", id)
	}
	if p.DistributionCompleted {
		return "", conflictf("period %d already distributed", id)
	}
	if p.RevealOutstanding() {
		return "", conflictf("period %d reveal already outstanding", id)
	}
	if p.DecryptionFailed {
		return "", conflictf("period %d already failed", id)
	}

	correlation, err := c.engine.RequestDecryption(ctx, []protocol.Handle{p.EncryptedTotal})
	if err != nil {
		return "", fmt.Errorf("requesting decryption: %w", err)
	}
	if _, exists := c.reveals[correlation]; exists {
		return "", conflictf("correlation %s already in use", correlation)
	}

	now := c.now()
	c.reveals[correlation] = &protocol.RevealRequest{
		Correlation: correlation,
		Period:      id,
		IssuedAt:    now,
	}
	p.PendingReveal = correlation
	p.RevealRequestedAt = now

	c.emit(protocol.Event{Type: protocol.EventRevealRequested, Period: id, Correlation: correlation})
	c.log.Info("reveal requested", "period", id, "correlation", correlation, "participants", p.ParticipantCount())
	return correlation, nil
}
