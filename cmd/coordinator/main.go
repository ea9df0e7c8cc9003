// Command coordinator runs the confidential water allocation coordinator.
//
// The coordinator accepts encrypted resource requests from region managers,
// orchestrates period reveals through an external ciphertext engine, and
// distributes obfuscated allocations.
//
// # Configuration File
//
// Create a YAML file with coordinator settings:
//
//	http_addr: ":8080"
//	metrics_addr: ":9090"
//	admin_token: "admin:secret"
//	engine_url: "http://engine:8090"
//	engine_principal: "ab34..."
//	settlement_url: "http://settlement:8091"
//	postgres:
//	  host: localhost
//	  port: 5432
//	  user: aquanet
//	  password: secret
//	  database: aquanet
//	protocol:
//	  reveal_timeout: 24h
//	  request_validity: 168h
//
// # Endpoints
//
// Public (no auth):
//   - GET /regions/{id} - Region metadata
//   - GET /periods/{id} - Period state
//   - GET /periods/{id}/active - Whether the period accepts requests
//   - GET /periods/{id}/refund-eligibility?manager= - Refund polling check
//   - POST /periods/{id}/timeout - Declare a stuck reveal failed
//   - GET /events?period=N - Event history
//   - GET /health - Health check
//
// Signed (Ed25519 envelope or engine proof):
//   - POST /requests - Manager resource request
//   - POST /refund-claims - Manager refund claim against a failed period
//   - POST /reveal-results - Engine decryption callback
//
// Admin (basic auth when admin_token set):
//   - POST /admin/regions - Register a region
//   - DELETE /admin/regions/{id} - Deactivate a region
//   - PUT /admin/regions/{id}/manager - Replace a region's manager
//   - POST /admin/regions/{id}/emergency-allocation - Out-of-period allocation
//   - POST /admin/periods - Start an allocation period
//   - POST /admin/periods/{id}/distribute - Request the period reveal
//
// # Usage
//
//	go run ./cmd/coordinator --config=coordinator.yaml
//	go run ./cmd/coordinator --addr=:8080 --admin-token="admin:secret"
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashbots/aquanet/api/httpserver"
	cmdcommon "github.com/flashbots/aquanet/cmd/common"
	"github.com/flashbots/aquanet/common"
	"github.com/flashbots/aquanet/coordinator"
	"github.com/flashbots/aquanet/engine"
	"github.com/flashbots/aquanet/metrics"
	"github.com/flashbots/aquanet/protocol"
	"github.com/flashbots/aquanet/services"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		addr          = flag.String("addr", "", "HTTP listen address")
		metricsAddr   = flag.String("metrics-addr", "", "Metrics listen address")
		adminToken    = flag.String("admin-token", "", "Basic auth token for admin operations (user:pass)")
		authorityKey  = flag.String("authority-key", "", "Hex-encoded Ed25519 authority signing key")
		engineURL     = flag.String("engine-url", "", "Ciphertext engine base URL")
		enginePrin    = flag.String("engine-principal", "", "Engine signing key, hex")
		settlementURL = flag.String("settlement-url", "", "Settlement service base URL")
		enablePprof   = flag.Bool("pprof", false, "Enable pprof debugging endpoints")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	applyFlagOverrides(cfg, *addr, *metricsAddr, *adminToken, *authorityKey,
		*engineURL, *enginePrin, *settlementURL, *enablePprof)

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*cmdcommon.Config, error) {
	if configPath != "" {
		return cmdcommon.LoadConfig(configPath)
	}
	return cmdcommon.DefaultConfig(), nil
}

func applyFlagOverrides(cfg *cmdcommon.Config, addr, metricsAddr, adminToken,
	authorityKey, engineURL, enginePrincipal, settlementURL string, enablePprof bool) {

	if addr != "" {
		cfg.HTTPAddr = addr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if adminToken != "" {
		cfg.AdminToken = adminToken
	}
	if authorityKey != "" {
		cfg.AuthorityKey = authorityKey
	}
	if engineURL != "" {
		cfg.EngineURL = engineURL
	}
	if enginePrincipal != "" {
		cfg.EnginePrincipal = enginePrincipal
	}
	if settlementURL != "" {
		cfg.SettlementURL = settlementURL
	}
	if enablePprof {
		cfg.EnablePprof = true
	}
}

func run(cfg *cmdcommon.Config) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := cfg.Protocol.Validate(); err != nil {
		return fmt.Errorf("protocol config: %w", err)
	}

	authorityKey, err := cmdcommon.LoadOrGenerateSigningKey(cfg.AuthorityKey)
	if err != nil {
		return fmt.Errorf("authority key: %w", err)
	}
	authorityPub, err := authorityKey.PublicKey()
	if err != nil {
		return err
	}
	authority := protocol.Principal(authorityPub.String())

	ciphertextEngine, enginePrincipal, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	var settlement protocol.SettlementExecutor = services.NoopSettlement{}
	if cfg.SettlementURL != "" {
		settlement = services.NewHTTPSettlement(cfg.SettlementURL, 30*time.Second)
	}

	sink := coordinator.NewMultiSink()
	if cfg.Postgres != nil {
		store, err := services.NewPostgresEventStore(&services.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return fmt.Errorf("event store: %w", err)
		}
		defer store.Close()
		sink.Add(store)
	}

	coord, err := coordinator.New(&coordinator.Config{
		Protocol:        &cfg.Protocol,
		Authority:       authority,
		Engine:          ciphertextEngine,
		EnginePrincipal: enginePrincipal,
		Verifier:        protocol.Ed25519Verifier{},
		Settlement:      settlement,
		EventSink:       sink,
		Log:             log,
	})
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	svc, err := services.NewCoordinatorService(&services.ServiceConfig{
		Coordinator: coord,
		Authority:   authority,
		AdminToken:  cfg.AdminToken,
		Log:         log,
	})
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            30 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, svc)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	sink.Add(metrics.NewCollector(common.PackageName, srv.Metrics().Registry()))

	log.Info("Coordinator starting",
		"authority", authority,
		"httpAddr", cfg.HTTPAddr,
		"adminEnabled", cfg.AdminToken != "")

	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down coordinator")
	srv.Shutdown()
	return nil
}

// buildEngine connects to the configured remote engine, or falls back to
// the in-process mock for local development.
func buildEngine(cfg *cmdcommon.Config) (protocol.CiphertextEngine, protocol.Principal, error) {
	if cfg.EngineURL != "" {
		if cfg.EnginePrincipal == "" {
			return nil, "", fmt.Errorf("engine_principal required with engine_url")
		}
		return engine.NewRemote(cfg.EngineURL, 30*time.Second), protocol.Principal(cfg.EnginePrincipal), nil
	}

	mock, err := engine.NewMock()
	if err != nil {
		return nil, "", err
	}
	return mock, mock.Principal(), nil
}
