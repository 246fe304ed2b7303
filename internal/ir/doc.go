// Package ir provides the canonical data model of the rebuild core.
//
// This package contains types, canonical serialization and hashing only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - geometry is fixed-point int64 (micrometres,
//     unit vectors scaled by 1e6, parameters in integer units)
//   - All JSON tags use snake_case; enum values keep their contract spelling
//   - Content-addressed ids use RFC 8785 canonical JSON and SHA-256 with
//     domain separation (see hash.go)
//   - Nothing here reads clocks, randomness or ambient state
package ir
