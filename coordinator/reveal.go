package coordinator

import (
	"context"

	"github.com/flashbots/aquanet/protocol"
)

// OnRevealResult is the engine's asynchronous answer to a decryption call.
// The proof must bind the engine principal to the exact result payload;
// unknown or already-completed correlations are rejected, which makes the
// entry point replay- and spoof-resistant.
//
// A revealed total of zero is the engine signalling failure: the period is
// marked failed and no distribution is attempted. Any other total triggers
// distribution immediately.
func (c *Coordinator) OnRevealResult(ctx context.Context, result *protocol.RevealResult, proof []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := protocol.RevealResultPayload(result)
	if err != nil {
		return validationf("encoding result payload: %v", err)
	}
	if !c.verifier.Verify(c.enginePrin, payload, proof) {
		return unauthorizedf("invalid reveal proof for correlation %s", result.Correlation)
	}

	reveal, ok := c.reveals[result.Correlation]
	if !ok {
		return notFoundf("reveal request %s", result.Correlation)
	}
	if reveal.Completed {
		return conflictf("reveal %s already completed", result.Correlation)
	}

	p, ok := c.periods[reveal.Period]
	if !ok {
		return notFoundf("period %d", reveal.Period)
	}

	reveal.Completed = true
	p.PendingReveal = ""

	if result.RevealedTotal == 0 {
		p.DecryptionFailed = true
		c.emit(protocol.Event{Type: protocol.EventRevealFailed, Period: p.ID, Correlation: result.Correlation})
		c.log.Warn("reveal failed", "period", p.ID, "correlation", result.Correlation)
		return nil
	}

	c.distribute(ctx, p, result.RevealedTotal)
	p.DistributionCompleted = true

	c.emit(protocol.Event{Type: protocol.EventDistributionCompleted, Period: p.ID, Correlation: result.Correlation})
	c.log.Info("distribution completed", "period", p.ID, "revealed_total", result.RevealedTotal)
	return nil
}

// RevealStatus returns a copy of the reveal record for a correlation id.
func (c *Coordinator) RevealStatus(correlation protocol.CorrelationID) (protocol.RevealRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reveal, ok := c.reveals[correlation]
	if !ok {
		return protocol.RevealRequest{}, notFoundf("reveal request %s", correlation)
	}
	return *reveal, nil
}
