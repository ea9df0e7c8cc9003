// Package cmd provides CLI commands for the allocation coordinator.
//
// # Commands
//
// coordinator: Runs the coordinator HTTP service, which accepts encrypted
// resource requests, orchestrates reveals through the ciphertext engine,
// and distributes obfuscated allocations.
//
//	go run ./cmd/coordinator --config=coordinator.yaml
//	go run ./cmd/coordinator --addr=:8080 --admin-token=admin:secret
//
// demo: Runs one full allocation period in-process against the mock
// engine, printing each step.
//
//	go run ./cmd/demo
//
// # Configuration
//
// The coordinator command supports YAML configuration files via the
// --config flag; individual flags override file values.
package cmd
