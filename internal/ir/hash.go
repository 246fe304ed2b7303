package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "tnp/snapshot/v1"
	DomainBundle   = "tnp/bundle/v1"
	DomainDocument = "tnp/document/v1"
	DomainSummary  = "tnp/summary/v1"
	DomainEntity   = "tnp/entity/v1"
)

// GenesisSnapshot is the stable snapshot of a feature that has never
// produced geometry. It is a valid rollback target.
const GenesisSnapshot = "genesis"

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCanonical marshals v canonically and hashes it under domain.
func HashCanonical(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return HashWithDomain(domain, data), nil
}

// SnapshotID computes the content-addressed snapshot id of the geometry a
// feature produced. The same feature producing the same kernel shape
// always yields the same id.
func SnapshotID(featureID, shapeID string) string {
	obj := Object{
		"feature_id": String(featureID),
		"shape_id":   String(shapeID),
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		// Only strings involved; canonical marshaling cannot fail.
		panic(fmt.Sprintf("SnapshotID: %v", err))
	}
	return HashWithDomain(DomainSnapshot, data)
}

// EntityIdentity derives a shape identity from an entity's topology
// signature. Kernels that lack native persistent names use it to hash
// whatever topological description they have.
func EntityIdentity(kind ReferenceKind, topology string) string {
	obj := Object{
		"kind":     String(kind),
		"topology": String(topology),
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		panic(fmt.Sprintf("EntityIdentity: %v", err))
	}
	return HashWithDomain(DomainEntity, data)
}

// ValidSnapshotID reports whether id is genesis or a 64-char lowercase
// hex digest.
func ValidSnapshotID(id string) bool {
	if id == GenesisSnapshot {
		return true
	}
	if len(id) != sha256.Size*2 {
		return false
	}
	for _, c := range id {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
