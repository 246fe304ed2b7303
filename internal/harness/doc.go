// Package harness provides conformance testing for rebuild behavior.
//
// The harness compiles a CUE document, drives it through a sequence of
// edits and rebuilds against a scripted kernel, and checks the Status
// Envelope of every feature after each step.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	document: |
//	  document: part: { ... }     # CUE, exactly one document
//	kernel:
//	  shapes: [...]               # kernel.Script
//	  rules: [...]
//	steps:
//	  - op: rebuild
//	    expect:
//	      base: {status: Ok, code: ok}
//	  - op: set_params
//	    feature: base
//	    params: {size: 20}
//	    evaluated: [base, sweep]
//	    expect:
//	      sweep:
//	        status: Warning
//	        code: tnp_ref_drift
//	        category: Drift
//	        kind: Face
//	        via: LocalIndex
//	  - op: reload
//	  - op: rebuild
//	    digest_unchanged: true
//
// # Step Operations
//
//   - rebuild: rebuild everything, or from the feature named by from
//   - set_params: replace a feature's parameters and rebuild from it
//   - add_feature: append a feature (CUE struct in feature_cue) and rebuild
//   - delete_feature: remove a feature and rebuild
//   - accept_references: clear a feature's drift records and rebuild from it
//   - reload: save the document to SQLite and load it back, dropping the
//     shape cache
//
// # Deterministic Testing
//
// Every scenario runs with numbered pass tokens, a fresh logical clock and
// an isolated in-memory SQLite database. Golden snapshots carry no hashes:
// snapshot ids are rendered as the kernel shape they name.
package harness
