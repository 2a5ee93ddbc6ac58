// Package pathutil implements the identity and path layer of trop's
// reservation engine (spec.md §4.1): normalization, symlink-aware
// canonicalization, and the relationship test used to gate mutations on
// unrelated directories.
//
// Two spellings of the same directory must resolve to the same Reservation
// identity, but the CLI's provenance rule (explicit paths are normalized
// only; implicit ones are also canonicalized) means this package exposes
// both operations separately rather than folding canonicalization into
// Normalize.
package pathutil
