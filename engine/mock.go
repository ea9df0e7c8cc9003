package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flashbots/aquanet/crypto"
	"github.com/flashbots/aquanet/protocol"
)

// RevealTarget is where the mock delivers its asynchronous results: in
// practice the coordinator's callback entry point.
type RevealTarget interface {
	OnRevealResult(ctx context.Context, result *protocol.RevealResult, proof []byte) error
}

// Mock is an in-process ciphertext engine. Values are stored in cleartext
// behind opaque handles; confidentiality is simulated through the access
// list, which Read enforces the same way a real engine would.
type Mock struct {
	signingKey crypto.PrivateKey
	principal  protocol.Principal

	mu          sync.Mutex
	values      map[protocol.Handle]uint64
	acl         map[protocol.Handle]map[protocol.Principal]bool
	pending     map[protocol.CorrelationID][]protocol.Handle
	nextHandle  uint64
	nextReveal  uint64
	failReveals bool
}

// NewMock creates a mock engine with a fresh signing identity.
func NewMock() (*Mock, error) {
	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Mock{
		signingKey: priv,
		principal:  protocol.Principal(pub.String()),
		values:     make(map[protocol.Handle]uint64),
		acl:        make(map[protocol.Handle]map[protocol.Principal]bool),
		pending:    make(map[protocol.CorrelationID][]protocol.Handle),
	}, nil
}

// Principal returns the engine's identity, to be configured as the
// coordinator's engine principal.
func (m *Mock) Principal() protocol.Principal { return m.principal }

// Encrypt stores value and returns a fresh opaque handle.
func (m *Mock) Encrypt(ctx context.Context, value uint64) (protocol.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextHandle++
	handle := protocol.Handle(fmt.Sprintf("ct-%d", m.nextHandle))
	m.values[handle] = value
	m.acl[handle] = make(map[protocol.Principal]bool)
	return handle, nil
}

// RequestDecryption records a pending decryption and returns its
// correlation id. The result is produced later by Deliver.
func (m *Mock) RequestDecryption(ctx context.Context, handles []protocol.Handle) (protocol.CorrelationID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range handles {
		if _, ok := m.values[h]; !ok {
			return "", fmt.Errorf("unknown handle %s", h)
		}
	}

	m.nextReveal++
	correlation := protocol.CorrelationID(fmt.Sprintf("reveal-%d", m.nextReveal))
	m.pending[correlation] = append([]protocol.Handle(nil), handles...)
	return correlation, nil
}

// GrantAccess allows principal to read the value behind handle.
func (m *Mock) GrantAccess(ctx context.Context, handle protocol.Handle, principal protocol.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	grants, ok := m.acl[handle]
	if !ok {
		return fmt.Errorf("unknown handle %s", handle)
	}
	grants[principal] = true
	return nil
}

// Read returns the cleartext behind handle if principal was granted access.
func (m *Mock) Read(handle protocol.Handle, principal protocol.Principal) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[handle]
	if !ok {
		return 0, fmt.Errorf("unknown handle %s", handle)
	}
	if !m.acl[handle][principal] {
		return 0, errors.New("access not granted")
	}
	return value, nil
}

// FailReveals makes subsequent Deliver calls report a zero total, the
// engine's failure signal.
func (m *Mock) FailReveals(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReveals = fail
}

// Result resolves a pending decryption into a signed result. The total is
// the sum of the requested cleartexts, or zero when failure is forced.
func (m *Mock) Result(correlation protocol.CorrelationID) (*protocol.RevealResult, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handles, ok := m.pending[correlation]
	if !ok {
		return nil, nil, fmt.Errorf("unknown correlation %s", correlation)
	}

	var total uint64
	if !m.failReveals {
		for _, h := range handles {
			total += m.values[h]
		}
	}

	result := &protocol.RevealResult{Correlation: correlation, RevealedTotal: total}
	proof, err := m.prove(result)
	if err != nil {
		return nil, nil, err
	}
	return result, proof, nil
}

// Deliver resolves a pending decryption and pushes the signed result to the
// target, completing the asynchronous callback loop.
func (m *Mock) Deliver(ctx context.Context, correlation protocol.CorrelationID, target RevealTarget) error {
	result, proof, err := m.Result(correlation)
	if err != nil {
		return err
	}
	return target.OnRevealResult(ctx, result, proof)
}

// prove signs the canonical result payload with the engine key.
func (m *Mock) prove(result *protocol.RevealResult) ([]byte, error) {
	payload, err := protocol.RevealResultPayload(result)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(m.signingKey, payload)
	if err != nil {
		return nil, err
	}
	return sig.Bytes(), nil
}
