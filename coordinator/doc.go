// Package coordinator implements the allocation-period state machine.
//
// A single Coordinator owns all region, period, request and reveal records
// and serializes every state-mutating operation behind one mutex, mirroring
// the append-only single-writer substrate the system assumes: one operation
// completes fully before the next begins, and a rejected operation changes
// nothing.
//
// The period lifecycle is
//
//	Created → Active → RevealPending → {Distributed | Failed}
//
// The only true asynchrony is the gap between RequestDistribution issuing a
// decryption call to the ciphertext engine and OnRevealResult receiving its
// answer; no operation blocks across that gap. If the answer never arrives,
// ClaimRevealTimeout turns the period into the Failed state and opens the
// refund path.
package coordinator
