package protocol

import (
	"time"
)

// EventType labels a coordinator state transition.
type EventType string

const (
	EventRegionRegistered      EventType = "region-registered"
	EventRegionDeactivated     EventType = "region-deactivated"
	EventManagerUpdated        EventType = "manager-updated"
	EventPeriodStarted         EventType = "period-started"
	EventRequestSubmitted      EventType = "request-submitted"
	EventRevealRequested       EventType = "reveal-requested"
	EventRevealFailed          EventType = "reveal-failed"
	EventAllocationCompleted   EventType = "allocation-completed"
	EventDistributionCompleted EventType = "distribution-completed"
	EventTimeoutTriggered      EventType = "timeout-triggered"
	EventRefundProcessed       EventType = "refund-processed"
)

// Event records one state transition with enough identifiers to reconstruct
// full period history without reading raw coordinator state. Amounts are
// never carried: allocations stay confidential even on the event stream.
type Event struct {
	Seq         uint64        `json:"seq"`
	Type        EventType     `json:"type"`
	Timestamp   time.Time     `json:"timestamp"`
	Region      RegionID      `json:"region,omitempty"`
	Period      PeriodID      `json:"period,omitempty"`
	Correlation CorrelationID `json:"correlation,omitempty"`
}
