package services

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flashbots/aquanet/coordinator"
	"github.com/flashbots/aquanet/protocol"
)

// CoordinatorService adapts the coordinator core to HTTP.
type CoordinatorService struct {
	coord     *coordinator.Coordinator
	authority protocol.Principal
	adminUser string
	adminPass string
	log       *slog.Logger
}

// NewCoordinatorService creates the service. AdminToken is user:pass;
// when empty, all admin routes answer 403.
func NewCoordinatorService(config *ServiceConfig) (*CoordinatorService, error) {
	if config.Coordinator == nil {
		return nil, errors.New("coordinator cannot be nil")
	}
	if config.Authority == "" {
		return nil, errors.New("authority principal cannot be empty")
	}

	log := config.Log
	if log == nil {
		log = slog.Default()
	}

	s := &CoordinatorService{
		coord:     config.Coordinator,
		authority: config.Authority,
		log:       log,
	}
	if config.AdminToken != "" {
		parts := strings.SplitN(config.AdminToken, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.New("admin token must be user:pass")
		}
		s.adminUser, s.adminPass = parts[0], parts[1]
	}
	return s, nil
}

// RegisterRoutes registers all coordinator routes with the router.
func (s *CoordinatorService) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Post("/regions", s.handleRegisterRegion)
		r.Delete("/regions/{region}", s.handleDeactivateRegion)
		r.Put("/regions/{region}/manager", s.handleUpdateManager)
		r.Post("/regions/{region}/emergency-allocation", s.handleEmergencyAllocation)
		r.Post("/periods", s.handleStartPeriod)
		r.Post("/periods/{period}/distribute", s.handleRequestDistribution)
	})

	r.Post("/requests", s.handleSubmitRequest)
	r.Post("/refund-claims", s.handleRefundClaim)
	r.Post("/reveal-results", s.handleRevealResult)

	r.Get("/regions/{region}", s.handleGetRegion)
	r.Get("/periods/{period}", s.handleGetPeriod)
	r.Get("/periods/{period}/active", s.handleGetPeriodActive)
	r.Get("/periods/{period}/refund-eligibility", s.handleRefundEligibility)
	r.Post("/periods/{period}/timeout", s.handleClaimTimeout)
	r.Get("/events", s.handleGetEvents)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, &StatusResponse{Status: "ok"})
	})
}

// adminAuth enforces basic auth against the configured admin token.
func (s *CoordinatorService) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminUser == "" {
			http.Error(w, "admin endpoints disabled", http.StatusForbidden)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.adminUser)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.adminPass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="aquanet admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *CoordinatorService) handleRegisterRegion(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := protocol.DecodeMessage[RegisterRegionRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.coord.RegisterRegion(s.authority, req.Name, req.Priority, req.Manager)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &RegisterRegionResponse{RegionID: id})
}

func (s *CoordinatorService) handleDeactivateRegion(w http.ResponseWriter, r *http.Request) {
	regionID, err := regionParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.coord.DeactivateRegion(s.authority, regionID); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StatusResponse{Status: "deactivated"})
}

func (s *CoordinatorService) handleUpdateManager(w http.ResponseWriter, r *http.Request) {
	regionID, err := regionParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	req, err := protocol.DecodeMessage[UpdateManagerRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.coord.UpdateManager(s.authority, regionID, req.Manager); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StatusResponse{Status: "updated"})
}

func (s *CoordinatorService) handleEmergencyAllocation(w http.ResponseWriter, r *http.Request) {
	regionID, err := regionParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	req, err := protocol.DecodeMessage[EmergencyAllocationRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.coord.EmergencyAllocate(r.Context(), s.authority, regionID, req.Amount); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StatusResponse{Status: "allocated"})
}

func (s *CoordinatorService) handleStartPeriod(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := protocol.DecodeMessage[StartPeriodRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.coord.StartPeriod(r.Context(), s.authority, req.TotalResource, req.DurationHours)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StartPeriodResponse{PeriodID: id})
}

func (s *CoordinatorService) handleRequestDistribution(w http.ResponseWriter, r *http.Request) {
	periodID, err := periodParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	correlation, err := s.coord.RequestDistribution(r.Context(), s.authority, periodID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &DistributionResponse{Correlation: correlation})
}

func (s *CoordinatorService) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	signed, err := protocol.DecodeMessage[protocol.Signed[protocol.RequestSubmission]](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, signer, err := signed.Recover()
	if err != nil {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	caller := protocol.Principal(signer.String())
	err = s.coord.SubmitRequest(r.Context(), caller, sub.Period, sub.Region, sub.RequestedAmount, sub.JustificationScore)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	s.log.Info("resource request accepted", "period", sub.Period, "region", sub.Region)
	writeJSON(w, http.StatusOK, &StatusResponse{Status: "submitted"})
}

func (s *CoordinatorService) handleRefundClaim(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	signed, err := protocol.DecodeMessage[protocol.Signed[protocol.RefundClaim]](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claim, signer, err := signed.Recover()
	if err != nil {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	caller := protocol.Principal(signer.String())
	if err := s.coord.ClaimFailureRefund(r.Context(), caller, claim.Period, claim.Region); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StatusResponse{Status: "refunded"})
}

func (s *CoordinatorService) handleRevealResult(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := protocol.DecodeMessage[RevealResultRequest](r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.coord.OnRevealResult(r.Context(), &req.Result, req.Proof); err != nil {
		s.log.Warn("reveal result rejected", "correlation", req.Result.Correlation, "err", err)
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StatusResponse{Status: "accepted"})
}

func (s *CoordinatorService) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	regionID, err := regionParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	region, err := s.coord.Region(regionID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &region)
}

func (s *CoordinatorService) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	periodID, err := periodParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	period, err := s.coord.Period(periodID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &period)
}

func (s *CoordinatorService) handleGetPeriodActive(w http.ResponseWriter, r *http.Request) {
	periodID, err := periodParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	active, err := s.coord.PeriodActive(periodID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &PeriodActiveResponse{Active: active})
}

func (s *CoordinatorService) handleRefundEligibility(w http.ResponseWriter, r *http.Request) {
	periodID, err := periodParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	manager := protocol.Principal(r.URL.Query().Get("manager"))
	if manager == "" {
		http.Error(w, "manager query parameter required", http.StatusBadRequest)
		return
	}
	eligible := s.coord.CanClaimTimeoutRefund(periodID, manager)
	writeJSON(w, http.StatusOK, &RefundEligibilityResponse{Eligible: eligible})
}

func (s *CoordinatorService) handleClaimTimeout(w http.ResponseWriter, r *http.Request) {
	periodID, err := periodParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.coord.ClaimRevealTimeout(r.Context(), periodID); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StatusResponse{Status: "timed-out"})
}

func (s *CoordinatorService) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	var periodID protocol.PeriodID
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid period", http.StatusBadRequest)
			return
		}
		periodID = protocol.PeriodID(parsed)
	}
	writeJSON(w, http.StatusOK, s.coord.Events(periodID))
}

func regionParam(r *http.Request) (protocol.RegionID, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "region"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid region id")
	}
	return protocol.RegionID(id), nil
}

func periodParam(r *http.Request) (protocol.PeriodID, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "period"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid period id")
	}
	return protocol.PeriodID(id), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeCoordinatorError maps the rejection taxonomy to HTTP statuses.
func writeCoordinatorError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, coordinator.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, coordinator.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, coordinator.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, coordinator.ErrNotFound):
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
