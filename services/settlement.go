package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flashbots/aquanet/protocol"
)

// HTTPSettlement forwards refund signals to an external settlement service.
// It implements protocol.SettlementExecutor.
type HTTPSettlement struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSettlement creates a client for the settlement service at baseURL.
func NewHTTPSettlement(baseURL string, timeout time.Duration) *HTTPSettlement {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSettlement{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type refundSignal struct {
	Region protocol.RegionID `json:"region"`
	Period protocol.PeriodID `json:"period"`
}

// ProcessRefund POSTs the refund signal to the settlement service. The
// service is responsible for the actual value return.
func (s *HTTPSettlement) ProcessRefund(ctx context.Context, region protocol.RegionID, period protocol.PeriodID) error {
	payload, err := json.Marshal(&refundSignal{Region: region, Period: period})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/refunds", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("settlement returned status %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// NoopSettlement discards refund signals. Used when no settlement service
// is configured; refunds are then visible only through the event log.
type NoopSettlement struct{}

// ProcessRefund does nothing.
func (NoopSettlement) ProcessRefund(context.Context, protocol.RegionID, protocol.PeriodID) error {
	return nil
}
