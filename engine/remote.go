package engine

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

// Remote is an HTTP client for a deployed ciphertext engine service.
//
// The service is expected to expose:
//
//	POST /encrypt            {"value": n}            → {"handle": "..."}
//	POST /request-decryption {"handles": [...]}      → {"correlation": "..."}
//	POST /grant-access       {"handle","principal"}  → 200
//
// and to deliver reveal results by POSTing signed payloads to the
// coordinator's callback endpoint.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemote creates a client for the engine at baseURL.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Remote{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type encryptRequest struct {
	Value uint64 `json:"value"`
}

type encryptResponse struct {
	Handle protocol.Handle `json:"handle"`
}

type decryptionRequest struct {
	Handles []protocol.Handle `json:"handles"`
}

type decryptionResponse struct {
	Correlation protocol.CorrelationID `json:"correlation"`
}

type grantRequest struct {
	Handle    protocol.Handle    `json:"handle"`
	Principal protocol.Principal `json:"principal"`
}

// Encrypt stores value with the remote engine and returns its handle.
func (r *Remote) Encrypt(ctx context.Context, value uint64) (protocol.Handle, error) {
	var resp encryptResponse
	if err := r.post(ctx, "/encrypt", &encryptRequest{Value: value}, &resp); err != nil {
		return protocol.ZeroHandle, err
	}
	return resp.Handle, nil
}

// RequestDecryption asks the remote engine to decrypt the handles.
func (r *Remote) RequestDecryption(ctx context.Context, handles []protocol.Handle) (protocol.CorrelationID, error) {
	var resp decryptionResponse
	if err := r.post(ctx, "/request-decryption", &decryptionRequest{Handles: handles}, &resp); err != nil {
		return "", err
	}
	return resp.Correlation, nil
}

// GrantAccess allows principal to read the value behind handle.
func (r *Remote) GrantAccess(ctx context.Context, handle protocol.Handle, principal protocol.Principal) error {
	return r.post(ctx, "/grant-access", &grantRequest{Handle: handle, Principal: principal}, nil)
}

func (r *Remote) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(msg))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
