package protocol

import (
	"context"
)

// CiphertextEngine is the external encrypted-computation service. It stores
// ciphertexts, performs homomorphic operations on them, and decrypts
// aggregates on request. The coordinator consumes this interface; it never
// decrypts anything itself.
//
// RequestDecryption is asynchronous: the engine answers later through the
// coordinator's reveal-result entry point, authenticated by a proof the
// deployment's ProofVerifier accepts. The gap between call and result may
// span anywhere from seconds to the full reveal timeout.
type CiphertextEngine interface {
	// Encrypt stores value and returns an opaque handle to the ciphertext.
	Encrypt(ctx context.Context, value uint64) (Handle, error)

	// RequestDecryption asks for the cleartext behind the handles. The
	// returned correlation id identifies the eventual callback.
	RequestDecryption(ctx context.Context, handles []Handle) (CorrelationID, error)

	// GrantAccess allows principal to read the cleartext behind handle.
	// Used so a manager can read their own allocation, and nothing else.
	GrantAccess(ctx context.Context, handle Handle, principal Principal) error
}

// SettlementExecutor performs the actual value return for refund-eligible
// requests, out-of-band. The coordinator only emits the signal.
type SettlementExecutor interface {
	ProcessRefund(ctx context.Context, region RegionID, period PeriodID) error
}

// ProofVerifier checks the authenticity of an engine reveal result.
// Implementations are scheme-specific; the coordinator only requires that a
// proof binds the principal to the exact payload.
type ProofVerifier interface {
	Verify(principal Principal, payload []byte, proof []byte) bool
}

// EntropySource supplies the unpredictability that obfuscates the mapping
// from request inputs to allocation amounts. Production sources draw from
// the environment; tests inject deterministic values.
type EntropySource interface {
	Uint64() uint64
}
