// Package canon makes reference collections and documents order-independent
// and reproducible.
//
// Canonicalize defines a total order over reference bundles so that two
// logically equal sets serialize byte-identically. EncodeSlots is the
// persisted reference-bundle encoding; DecodeSlots reads it back and the
// round trip reproduces the same bytes. Digest and SummaryFingerprint are
// the golden regression hashes of a whole document.
//
// Everything here is a pure function of its input.
package canon
