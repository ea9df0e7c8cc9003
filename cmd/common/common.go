// Package common provides shared utilities for the coordinator CLI
// commands.
//
// This package contains helper functions used across the standalone
// binaries (coordinator, demo) to reduce code duplication:
//
//   - Key loading and generation for Ed25519 signing keys
//   - YAML configuration loading with sane defaults
package common

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flashbots/aquanet/crypto"
	"github.com/flashbots/aquanet/protocol"
)

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateKeyPair()
	return privKey, err
}

// PostgresSettings configures the optional durable event store.
type PostgresSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// Config is the coordinator binary's YAML configuration.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	EnablePprof bool   `yaml:"enable_pprof"`

	// AdminToken guards the authority endpoints (user:pass). Empty
	// disables them.
	AdminToken string `yaml:"admin_token"`

	// AuthorityKey is the hex-encoded Ed25519 private key of the
	// coordinator authority. Generated when empty.
	AuthorityKey string `yaml:"authority_key"`

	// EngineURL is the base URL of the ciphertext engine service. Empty
	// runs the built-in mock engine, for local development.
	EngineURL string `yaml:"engine_url"`

	// EnginePrincipal identifies the engine's signing key for reveal
	// proofs. Required when engine_url is set.
	EnginePrincipal string `yaml:"engine_principal"`

	// SettlementURL is the base URL of the settlement service. Empty
	// discards refund signals.
	SettlementURL string `yaml:"settlement_url"`

	Postgres *PostgresSettings      `yaml:"postgres"`
	Protocol protocol.AquaNetConfig `yaml:"protocol"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Protocol: *protocol.DefaultConfig(),
	}
}

// LoadConfig reads a YAML configuration file, filling unset fields with
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
