package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/tnpcore/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Step     int
	Op       string
	Feature  string // empty for step-level expectations
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "steps[%d] %s", e.Step, e.Op)
	if e.Feature != "" {
		fmt.Fprintf(&buf, " feature %s", e.Feature)
	}
	fmt.Fprintf(&buf, ": %s: expected %s, got %s", e.Field, e.Expected, e.Actual)
	return buf.String()
}

// checkStep evaluates a step's expectations and returns one message per
// failure, features in id order.
func checkStep(index int, step Step, sr StepResult, lastDigest string) []string {
	var msgs []string
	fail := func(feature, field, expected, actual string) {
		msgs = append(msgs, (&AssertionError{
			Step: index, Op: step.Op, Feature: feature,
			Field: field, Expected: expected, Actual: actual,
		}).Error())
	}

	if step.Evaluated != nil && !slices.Equal(step.Evaluated, sr.Evaluated) {
		fail("", "evaluated", fmt.Sprint(step.Evaluated), fmt.Sprint(sr.Evaluated))
	}
	if step.DigestUnchanged {
		switch {
		case lastDigest == "":
			fail("", "digest_unchanged", "a previous pass", "none")
		case lastDigest != sr.Digest:
			fail("", "digest_unchanged", lastDigest, sr.Digest)
		}
	}

	ids := make([]string, 0, len(step.Expect))
	for id := range step.Expect {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		want := step.Expect[id]
		got := findOutcome(sr, id)
		if got == nil {
			fail(id, "feature", "present", "absent")
			continue
		}
		for _, m := range matchEnvelope(want, got) {
			fail(id, m.field, m.expected, m.actual)
		}
	}
	return msgs
}

type mismatch struct {
	field, expected, actual string
}

// matchEnvelope compares only the fields want sets.
func matchEnvelope(want Expect, got *FeatureOutcome) []mismatch {
	env := got.Envelope
	var out []mismatch
	cmp := func(field, expected, actual string) {
		if expected != "" && expected != actual {
			out = append(out, mismatch{field, quote(expected), quote(actual)})
		}
	}

	cmp("status", want.Status, string(env.Status))
	cmp("code", want.Code, env.Code)

	var f ir.TNPFailure
	if env.TNPFailure != nil {
		f = *env.TNPFailure
	}
	cmp("category", want.Category, string(f.Category))
	cmp("reason", want.Reason, f.Reason)
	cmp("kind", want.Kind, string(f.Kind))
	cmp("via", want.Via, string(f.ResolvedVia))
	cmp("slot", want.Slot, f.Slot)

	var dep ir.RuntimeDependency
	if env.RuntimeDependency != nil {
		dep = *env.RuntimeDependency
	}
	cmp("capability", want.Capability, dep.Capability)

	if want.RollbackEqual != nil {
		switch {
		case env.Rollback == nil:
			out = append(out, mismatch{"rollback", "present", "absent"})
		case (env.Rollback.From == env.Rollback.To) != *want.RollbackEqual:
			out = append(out, mismatch{"rollback_equal",
				fmt.Sprint(*want.RollbackEqual), fmt.Sprint(env.Rollback.From == env.Rollback.To)})
		}
	}
	return out
}

func findOutcome(sr StepResult, id string) *FeatureOutcome {
	for i := range sr.Features {
		if sr.Features[i].ID == id {
			return &sr.Features[i]
		}
	}
	return nil
}

func quote(s string) string {
	if s == "" {
		return "(empty)"
	}
	return fmt.Sprintf("%q", s)
}
