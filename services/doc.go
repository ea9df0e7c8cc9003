// Package services exposes the coordinator over HTTP.
//
// Three caller classes map to three route groups:
//
//   - admin routes (basic auth) act as the coordinating authority: region
//     registration and deactivation, manager updates, period start,
//     distribution requests, emergency allocations
//   - signed routes authenticate managers and the engine through
//     protocol.Signed envelopes or proofs: request submission, refund
//     claims, reveal results
//   - public routes are unauthenticated reads plus the permissionless
//     reveal-timeout claim
//
// The package also provides the durable event stores (PostgreSQL and
// in-memory) and the HTTP settlement executor.
package services
