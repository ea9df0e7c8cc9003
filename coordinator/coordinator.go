package coordinator

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flashbots/aquanet/protocol"
)

// EventSink receives every emitted event, typically for durable storage.
// Append errors are logged, not propagated: the in-memory log remains the
// source of truth within a process.
type EventSink interface {
	Append(event protocol.Event) error
}

// Config wires the Coordinator's collaborators and identities.
type Config struct {
	Protocol *protocol.AquaNetConfig

	// Authority is the only principal allowed to register regions, start
	// periods and request distribution.
	Authority protocol.Principal

	// Engine is the external ciphertext engine.
	Engine protocol.CiphertextEngine

	// EnginePrincipal identifies the engine on reveal callbacks.
	EnginePrincipal protocol.Principal

	// Verifier checks reveal-result proofs against EnginePrincipal.
	Verifier protocol.ProofVerifier

	// Settlement receives refund signals. Optional; refunds are still
	// recorded when nil.
	Settlement protocol.SettlementExecutor

	// Entropy obfuscates allocation amounts. Defaults to crypto/rand.
	Entropy protocol.EntropySource

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time

	// EventSink durably records events. Optional.
	EventSink EventSink

	Log *slog.Logger
}

type requestKey struct {
	period protocol.PeriodID
	region protocol.RegionID
}

// Coordinator owns all allocation state. See the package doc for the
// execution model.
type Coordinator struct {
	cfg        *protocol.AquaNetConfig
	authority  protocol.Principal
	engine     protocol.CiphertextEngine
	enginePrin protocol.Principal
	verifier   protocol.ProofVerifier
	settlement protocol.SettlementExecutor
	entropy    protocol.EntropySource
	now        func() time.Time
	sink       EventSink
	log        *slog.Logger

	mu            sync.Mutex
	regions       map[protocol.RegionID]*protocol.Region
	nextRegion    protocol.RegionID
	activeRegions int

	periods    map[protocol.PeriodID]*protocol.AllocationPeriod
	nextPeriod protocol.PeriodID

	requests map[requestKey]*protocol.ResourceRequest
	reveals  map[protocol.CorrelationID]*protocol.RevealRequest

	events      []protocol.Event
	nextSeq     uint64
	subscribers []subscriber
}

// New creates a Coordinator. The engine, verifier and authority are
// mandatory; everything else has a production default.
func New(config *Config) (*Coordinator, error) {
	if config.Engine == nil {
		return nil, errors.New("ciphertext engine cannot be nil")
	}
	if config.Verifier == nil {
		return nil, errors.New("proof verifier cannot be nil")
	}
	if config.Authority == "" {
		return nil, errors.New("authority principal cannot be empty")
	}
	if config.EnginePrincipal == "" {
		return nil, errors.New("engine principal cannot be empty")
	}

	cfg := config.Protocol
	if cfg == nil {
		cfg = protocol.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nowFn := config.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	entropy := config.Entropy
	if entropy == nil {
		entropy = systemEntropy{}
	}
	log := config.Log
	if log == nil {
		log = slog.Default()
	}

	return &Coordinator{
		cfg:        cfg,
		authority:  config.Authority,
		engine:     config.Engine,
		enginePrin: config.EnginePrincipal,
		verifier:   config.Verifier,
		settlement: config.Settlement,
		entropy:    entropy,
		now:        nowFn,
		sink:       config.EventSink,
		log:        log,
		regions:    make(map[protocol.RegionID]*protocol.Region),
		nextRegion: 1,
		periods:    make(map[protocol.PeriodID]*protocol.AllocationPeriod),
		nextPeriod: 1,
		requests:   make(map[requestKey]*protocol.ResourceRequest),
		reveals:    make(map[protocol.CorrelationID]*protocol.RevealRequest),
	}, nil
}

// Config returns the protocol parameters the coordinator runs with.
func (c *Coordinator) Config() *protocol.AquaNetConfig { return c.cfg }

// systemEntropy draws unpredictability from crypto/rand.
type systemEntropy struct{}

func (systemEntropy) Uint64() uint64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return binary.BigEndian.Uint64(buf[:])
}
