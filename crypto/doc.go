// Package crypto provides the Ed25519 key and signature primitives used to
// authenticate managers, the coordinating authority, and the ciphertext
// engine's reveal callbacks.
//
// Keys double as principal identifiers: a principal is the hex encoding of
// its signing public key. The coordinator core never handles plaintext
// resource values; this package only covers authenticity, not encryption.
package crypto
