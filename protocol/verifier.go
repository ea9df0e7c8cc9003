package protocol

import (
	"github.com/flashbots/aquanet/crypto"
)

// Ed25519Verifier verifies reveal-result proofs as Ed25519 signatures made
// by the principal's key over the exact payload. It is the default verifier;
// deployments whose engine uses a different proof scheme substitute their
// own ProofVerifier.
type Ed25519Verifier struct{}

// Verify reports whether proof is a valid signature of payload under the
// public key the principal encodes.
func (Ed25519Verifier) Verify(principal Principal, payload []byte, proof []byte) bool {
	pubKey, err := crypto.NewPublicKeyFromString(string(principal))
	if err != nil {
		return false
	}
	return crypto.Signature(proof).Verify(pubKey, payload)
}

// RevealResultPayload is the canonical byte encoding a reveal-result proof
// must cover. Engine and coordinator must agree on it exactly.
func RevealResultPayload(result *RevealResult) ([]byte, error) {
	return SerializeMessage(result)
}
