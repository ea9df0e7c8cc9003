package protocol

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/flashbots/aquanet/crypto"
)

// Signed wraps a message with an Ed25519 signature for authentication.
// The signature covers the serialized object concatenated with the signer's
// public key, so an envelope cannot be replayed under a different identity.
type Signed[T any] struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Signature crypto.Signature `json:"signature"`
	Object    *T               `json:"object"`
}

// NewSigned signs obj with privkey and returns the authenticated envelope.
func NewSigned[T any](privkey crypto.PrivateKey, obj *T) (*Signed[T], error) {
	pubkey, err := privkey.PublicKey()
	if err != nil {
		return nil, err
	}

	serialized, err := SerializeMessage(obj)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(privkey, append(serialized, pubkey...))
	if err != nil {
		return nil, err
	}

	return &Signed[T]{PublicKey: pubkey, Signature: signature, Object: obj}, nil
}

// Recover verifies the signature and returns the object with its signer.
func (s *Signed[T]) Recover() (*T, crypto.PublicKey, error) {
	serialized, err := SerializeMessage(s.Object)
	if err != nil {
		return nil, nil, err
	}

	if !s.Signature.Verify(s.PublicKey, append(serialized, s.PublicKey...)) {
		return nil, nil, errors.New("signature not valid")
	}

	return s.Object, s.PublicKey, nil
}

// UnsafeObject returns the wrapped object without verifying the signature.
func (s *Signed[T]) UnsafeObject() *T { return s.Object }

// RequestSubmission is a manager's confidential resource request for a
// period. Amount and score travel in cleartext only between the manager and
// the coordinator's intake; the coordinator immediately converts them to
// ciphertext handles and drops the plaintext.
type RequestSubmission struct {
	Period             PeriodID `json:"period"`
	Region             RegionID `json:"region"`
	RequestedAmount    uint64   `json:"requested_amount"`
	JustificationScore uint8    `json:"justification_score"` // 1..100
}

// RevealResult is the engine's asynchronous answer to a decryption call.
type RevealResult struct {
	Correlation   CorrelationID `json:"correlation"`
	RevealedTotal uint64        `json:"revealed_total"`
}

// RefundClaim is a manager's claim against a failed period.
type RefundClaim struct {
	Period PeriodID `json:"period"`
	Region RegionID `json:"region"`
}

// SerializeMessage serializes a message to canonical JSON.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return json.Marshal(msg)
}

// UnmarshalMessage deserializes a message from JSON.
func UnmarshalMessage[T any](data []byte) (*T, error) {
	var msg T
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// DecodeMessage deserializes a message from a JSON reader.
func DecodeMessage[T any](reader io.Reader) (*T, error) {
	var msg T
	err := json.NewDecoder(reader).Decode(&msg)
	return &msg, err
}
