package services

import (
	"log/slog"

	"github.com/flashbots/aquanet/coordinator"
	"github.com/flashbots/aquanet/protocol"
)

// ServiceConfig configures the coordinator HTTP service.
type ServiceConfig struct {
	Coordinator *coordinator.Coordinator

	// Authority is the principal admin-authenticated calls act as. Must
	// match the coordinator's configured authority.
	Authority protocol.Principal

	// AdminToken guards the authority endpoints (user:pass for basic
	// auth). Empty disables them entirely.
	AdminToken string

	Log *slog.Logger
}

// RegisterRegionRequest is the admin payload for creating a region.
type RegisterRegionRequest struct {
	Name     string             `json:"name"`
	Priority uint8              `json:"priority"`
	Manager  protocol.Principal `json:"manager"`
}

// RegisterRegionResponse returns the assigned region id.
type RegisterRegionResponse struct {
	RegionID protocol.RegionID `json:"region_id"`
}

// UpdateManagerRequest replaces a region's manager.
type UpdateManagerRequest struct {
	Manager protocol.Principal `json:"manager"`
}

// StartPeriodRequest is the admin payload for opening a period.
type StartPeriodRequest struct {
	TotalResource uint64 `json:"total_resource"`
	DurationHours uint32 `json:"duration_hours"`
}

// StartPeriodResponse returns the assigned period id.
type StartPeriodResponse struct {
	PeriodID protocol.PeriodID `json:"period_id"`
}

// DistributionResponse returns the reveal correlation id.
type DistributionResponse struct {
	Correlation protocol.CorrelationID `json:"correlation"`
}

// EmergencyAllocationRequest is the admin payload for an out-of-period
// allocation.
type EmergencyAllocationRequest struct {
	Amount uint64 `json:"amount"`
}

// RevealResultRequest carries the engine's asynchronous decryption result.
// Proof must cover the canonical result payload under the engine principal.
type RevealResultRequest struct {
	Result protocol.RevealResult `json:"result"`
	Proof  []byte                `json:"proof"`
}

// RefundEligibilityResponse answers the client-side polling check.
type RefundEligibilityResponse struct {
	Eligible bool `json:"eligible"`
}

// StatusResponse is the generic acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}

// PeriodActiveResponse reports whether a period accepts requests.
type PeriodActiveResponse struct {
	Active bool `json:"active"`
}
