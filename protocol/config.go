package protocol

import (
	"fmt"
	"math"
	"time"
)

// AquaNetConfig provides the protocol parameters shared by the coordinator
// and its clients.
type AquaNetConfig struct {
	// RevealTimeout is how long a decryption call may stay unanswered
	// before anyone may declare the period failed.
	RevealTimeout time.Duration `yaml:"reveal_timeout" json:"reveal_timeout"`

	// RequestValidity is the per-request expiry window from submission.
	RequestValidity time.Duration `yaml:"request_validity" json:"request_validity"`

	// MinPeriodHours and MaxPeriodHours bound startPeriod durations.
	MinPeriodHours uint32 `yaml:"min_period_hours" json:"min_period_hours"`
	MaxPeriodHours uint32 `yaml:"max_period_hours" json:"max_period_hours"`

	// MinPriority and MaxPriority bound region priorities.
	MinPriority uint8 `yaml:"min_priority" json:"min_priority"`
	MaxPriority uint8 `yaml:"max_priority" json:"max_priority"`

	// MinScore and MaxScore bound request justification scores.
	MinScore uint8 `yaml:"min_score" json:"min_score"`
	MaxScore uint8 `yaml:"max_score" json:"max_score"`

	// MaxRequestAmount guards the later homomorphic summation against
	// overflow. Requests above it are rejected at intake.
	MaxRequestAmount uint64 `yaml:"max_request_amount" json:"max_request_amount"`
}

// DefaultConfig returns the production protocol parameters.
func DefaultConfig() *AquaNetConfig {
	return &AquaNetConfig{
		RevealTimeout:    24 * time.Hour,
		RequestValidity:  7 * 24 * time.Hour,
		MinPeriodHours:   1,
		MaxPeriodHours:   168,
		MinPriority:      1,
		MaxPriority:      10,
		MinScore:         1,
		MaxScore:         100,
		MaxRequestAmount: math.MaxUint64 / 2,
	}
}

// Validate rejects configurations that would make the state machine
// unsatisfiable.
func (c *AquaNetConfig) Validate() error {
	if c.RevealTimeout <= 0 {
		return fmt.Errorf("reveal timeout must be positive, got %s", c.RevealTimeout)
	}
	if c.RequestValidity <= 0 {
		return fmt.Errorf("request validity must be positive, got %s", c.RequestValidity)
	}
	if c.MinPeriodHours == 0 || c.MinPeriodHours > c.MaxPeriodHours {
		return fmt.Errorf("invalid period bounds [%d, %d]", c.MinPeriodHours, c.MaxPeriodHours)
	}
	if c.MinPriority == 0 || c.MinPriority > c.MaxPriority {
		return fmt.Errorf("invalid priority bounds [%d, %d]", c.MinPriority, c.MaxPriority)
	}
	if c.MinScore == 0 || c.MinScore > c.MaxScore {
		return fmt.Errorf("invalid score bounds [%d, %d]", c.MinScore, c.MaxScore)
	}
	if c.MaxRequestAmount == 0 {
		return fmt.Errorf("max request amount must be positive")
	}
	return nil
}
