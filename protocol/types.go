package protocol

import (
	"time"
)

// RegionID identifies a registered consumer region. IDs are assigned
// sequentially starting at 1 and never reused.
type RegionID uint64

// PeriodID identifies an allocation period. Sequential, starting at 1.
type PeriodID uint64

// CorrelationID ties an outstanding decryption call to the engine's
// asynchronous result.
type CorrelationID string

// Principal identifies a caller. Managers and the engine are identified by
// the hex encoding of their Ed25519 public key; the coordinating authority
// is whatever principal the deployment configured.
type Principal string

// Handle is an opaque reference to an encrypted value held by the
// ciphertext engine. The coordinator never sees the plaintext behind it.
type Handle string

// ZeroHandle is the absent handle.
const ZeroHandle Handle = ""

// Region is a registered consumer of the shared resource.
//
// Regions are never physically removed: historical periods must still
// resolve them, so deactivation only clears Active.
type Region struct {
	ID       RegionID  `json:"id"`
	Name     string    `json:"name"`
	Priority uint8     `json:"priority"` // 1..10
	Manager  Principal `json:"manager"`
	Active   bool      `json:"active"`

	UpdatedAt time.Time `json:"updated_at"`

	// LockedAllocation references the region's most recent encrypted
	// allocation amount, readable only by the region's manager.
	LockedAllocation Handle `json:"locked_allocation,omitempty"`
}

// AllocationPeriod is one bounded request-intake and distribution window.
type AllocationPeriod struct {
	ID    PeriodID  `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// EncryptedTotal references the total available resource for the
	// period. Only its aggregate is ever revealed.
	EncryptedTotal Handle `json:"encrypted_total"`

	DistributionCompleted bool `json:"distribution_completed"`
	DecryptionFailed      bool `json:"decryption_failed"`

	// Participants lists regions in submission order; the distribution
	// algorithm iterates it in exactly this order.
	Participants []RegionID `json:"participants"`

	// PendingReveal is the correlation id of the outstanding decryption
	// call, or empty when none is outstanding. At most one at a time.
	PendingReveal     CorrelationID `json:"pending_reveal,omitempty"`
	RevealRequestedAt time.Time     `json:"reveal_requested_at"`
}

// ParticipantCount returns the number of requests submitted in the period.
func (p *AllocationPeriod) ParticipantCount() int { return len(p.Participants) }

// RevealOutstanding reports whether a decryption call awaits its result.
func (p *AllocationPeriod) RevealOutstanding() bool { return p.PendingReveal != "" }

// Participated reports whether the region submitted a request this period.
func (p *AllocationPeriod) Participated(id RegionID) bool {
	for _, r := range p.Participants {
		if r == id {
			return true
		}
	}
	return false
}

// ResourceRequest is one region's confidential request within a period.
// At most one per (period, region). Exactly one of Processed and
// RefundClaimed may ever become true.
type ResourceRequest struct {
	Period PeriodID `json:"period"`
	Region RegionID `json:"region"`

	EncryptedAmount Handle `json:"encrypted_amount"`
	EncryptedScore  Handle `json:"encrypted_score"`

	SubmittedAt time.Time `json:"submitted_at"`
	ExpiresAt   time.Time `json:"expires_at"`

	Processed     bool `json:"processed"`
	RefundClaimed bool `json:"refund_claimed"`
}

// RevealRequest correlates a decryption call with its period. Consumed by
// the engine callback or by timeout, never reused.
type RevealRequest struct {
	Correlation CorrelationID `json:"correlation"`
	Period      PeriodID      `json:"period"`
	IssuedAt    time.Time     `json:"issued_at"`
	Completed   bool          `json:"completed"`
}
