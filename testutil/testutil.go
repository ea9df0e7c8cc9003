// Package testutil provides deterministic stand-ins for the coordinator's
// environment: a controllable clock, fixed entropy, and key fixtures.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flashbots/aquanet/crypto"
	"github.com/flashbots/aquanet/protocol"
)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock fixed at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time. Pass as the coordinator's Now option.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Entropy returns the same value on every draw, making allocation outcomes
// reproducible.
type Entropy uint64

// Uint64 implements protocol.EntropySource.
func (e Entropy) Uint64() uint64 { return uint64(e) }

// NewManager generates a manager identity for tests.
func NewManager(t *testing.T) (protocol.Principal, crypto.PrivateKey) {
	t.Helper()

	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return protocol.Principal(pub.String()), priv
}

// RefundRecorder is a settlement executor capturing every refund signal.
type RefundRecorder struct {
	mu      sync.Mutex
	Refunds []RefundSignal
}

// RefundSignal is one captured refund.
type RefundSignal struct {
	Region protocol.RegionID
	Period protocol.PeriodID
}

// ProcessRefund implements protocol.SettlementExecutor.
func (r *RefundRecorder) ProcessRefund(_ context.Context, region protocol.RegionID, period protocol.PeriodID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Refunds = append(r.Refunds, RefundSignal{Region: region, Period: period})
	return nil
}

// Count returns the number of captured refunds.
func (r *RefundRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Refunds)
}
