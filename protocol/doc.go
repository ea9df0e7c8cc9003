// Package protocol defines the AquaNet domain model and the contracts with
// the system's external collaborators.
//
// AquaNet coordinates periodic distribution of a scarce shared resource
// (water) among registered regions. Per-region demand and allocation amounts
// stay confidential: the coordinator only ever holds opaque ciphertext
// handles issued by an external ciphertext engine, and asks that engine to
// reveal the aggregate total once request intake closes.
//
// The package contains:
//   - typed identifiers and the records tracked per region, period and request
//   - the CiphertextEngine, SettlementExecutor, ProofVerifier and
//     EntropySource interfaces consumed by the coordinator core
//   - the Signed[T] envelope authenticating managers and the engine
//   - the typed event stream emitted for every state transition
package protocol
