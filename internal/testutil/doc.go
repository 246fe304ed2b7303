// Package testutil holds fixtures shared by the rebuild, harness, store
// and cli tests: a scripted kernel, the three-feature part it builds, and
// a constant pass token source for golden comparisons.
package testutil
