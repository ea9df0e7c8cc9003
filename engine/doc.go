// Package engine provides implementations of protocol.CiphertextEngine.
//
// Mock is a fully in-process engine for tests and demos: it stores values
// behind opaque handles, enforces per-handle access grants, and produces
// signed reveal results on demand so the coordinator's callback path can be
// exercised end to end without a real encrypted-computation service.
//
// Remote is an HTTP client for a deployed engine service.
package engine
