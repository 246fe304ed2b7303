// Package compiler turns CUE document definitions into ir.Document values.
//
// A definition file declares one or more documents under `document`:
//
//	document: bracket: {
//		policy: strict_topology_policy: true
//		features: [
//			{id: "base", operation_kind: "primitive", parameters: {size: 10}},
//			{id: "pad", operation_kind: "extrude", inputs: ["base"],
//			 reference_slots: [{name: "profile", source: "base", refs: [...]}]},
//		]
//	}
//
// Compiled documents have never been built: every feature is pending on
// the genesis snapshot.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tnpcore/internal/ir"
)

// CompileDocument parses a CUE value into a Document. The document name is
// the value's last path label, e.g. for `document.bracket` it is
// "bracket".
func CompileDocument(v cue.Value) (*ir.Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := &ir.Document{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		sel := labels[len(labels)-1]
		if sel.LabelType() == cue.StringLabel {
			doc.Name = sel.Unquoted()
		} else {
			doc.Name = sel.String()
		}
	}

	if err := checkFields(v, "document", "policy", "features"); err != nil {
		return nil, err
	}

	policy, err := parsePolicy(v.LookupPath(cue.ParsePath("policy")))
	if err != nil {
		return nil, err
	}
	doc.Policy = policy

	featuresVal := v.LookupPath(cue.ParsePath("features"))
	if !featuresVal.Exists() {
		return nil, &CompileError{Field: "features", Message: "features are required", Pos: v.Pos()}
	}
	iter, err := featuresVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		f, err := parseFeature(iter.Value(), fmt.Sprintf("features[%d]", i))
		if err != nil {
			return nil, err
		}
		doc.Features = append(doc.Features, f)
	}
	if len(doc.Features) == 0 {
		return nil, &CompileError{Field: "features", Message: "at least one feature is required", Pos: featuresVal.Pos()}
	}

	doc.Normalize()
	return doc, nil
}

// CompileFeature parses a single feature struct, as used by AddFeature
// edits.
func CompileFeature(v cue.Value) (ir.Feature, error) {
	if err := v.Err(); err != nil {
		return ir.Feature{}, formatCUEError(err)
	}
	return parseFeature(v, "feature")
}

func parsePolicy(v cue.Value) (ir.Policy, error) {
	var p ir.Policy
	if !v.Exists() {
		return p, nil
	}
	if err := checkFields(v, "policy", "strict_topology_policy", "legacy_recovery", "tolerance"); err != nil {
		return p, err
	}
	var err error
	if p.StrictTopology, err = optionalBool(v, "strict_topology_policy"); err != nil {
		return p, err
	}
	if p.LegacyRecovery, err = optionalBool(v, "legacy_recovery"); err != nil {
		return p, err
	}

	tolVal := v.LookupPath(cue.ParsePath("tolerance"))
	if !tolVal.Exists() {
		return p, nil
	}
	if err := checkFields(tolVal, "policy.tolerance", "centroid_um", "min_dot_ppm", "extent_permille"); err != nil {
		return p, err
	}
	tol := ir.Tolerance{}
	for _, fld := range []struct {
		name string
		dst  *int64
	}{
		{"centroid_um", &tol.CentroidUM},
		{"min_dot_ppm", &tol.MinDotPPM},
		{"extent_permille", &tol.ExtentPermille},
	} {
		name, dst := fld.name, fld.dst
		n, err := requiredInt(tolVal, name, "policy.tolerance."+name)
		if err != nil {
			return p, err
		}
		if n < 0 {
			return p, &CompileError{Field: "policy.tolerance." + name, Message: "must be non-negative", Pos: tolVal.Pos()}
		}
		*dst = n
	}
	p.Tolerance = &tol
	return p, nil
}

func parseFeature(v cue.Value, field string) (ir.Feature, error) {
	var f ir.Feature
	if err := checkFields(v, field, "id", "operation_kind", "parameters", "inputs", "reference_slots"); err != nil {
		return f, err
	}

	var err error
	if f.ID, err = requiredString(v, "id", field+".id"); err != nil {
		return f, err
	}
	field = fmt.Sprintf("feature %s", f.ID)

	op, err := requiredString(v, "operation_kind", field+".operation_kind")
	if err != nil {
		return f, err
	}
	f.Op = ir.OperationKind(op)
	if !f.Op.Valid() {
		return f, &CompileError{Field: field + ".operation_kind", Message: fmt.Sprintf("unknown operation %q", op), Pos: v.Pos()}
	}

	f.Params = ir.Object{}
	if pv := v.LookupPath(cue.ParsePath("parameters")); pv.Exists() {
		val, err := parseValue(pv, field+".parameters")
		if err != nil {
			return f, err
		}
		obj, ok := val.(ir.Object)
		if !ok {
			return f, &CompileError{Field: field + ".parameters", Message: "must be a struct", Pos: pv.Pos()}
		}
		f.Params = obj
	}

	if f.Inputs, err = optionalStrings(v, "inputs", field+".inputs"); err != nil {
		return f, err
	}

	if sv := v.LookupPath(cue.ParsePath("reference_slots")); sv.Exists() {
		iter, err := sv.List()
		if err != nil {
			return f, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			s, err := parseSlot(iter.Value(), fmt.Sprintf("%s.reference_slots[%d]", field, i))
			if err != nil {
				return f, err
			}
			f.Slots = append(f.Slots, s)
		}
	}
	return f, nil
}

func parseSlot(v cue.Value, field string) (ir.Slot, error) {
	var s ir.Slot
	if err := checkFields(v, field, "name", "source", "refs"); err != nil {
		return s, err
	}
	var err error
	if s.Name, err = requiredString(v, "name", field+".name"); err != nil {
		return s, err
	}
	if s.Source, err = requiredString(v, "source", field+".source"); err != nil {
		return s, err
	}
	rv := v.LookupPath(cue.ParsePath("refs"))
	if !rv.Exists() {
		return s, &CompileError{Field: field + ".refs", Message: "refs are required", Pos: v.Pos()}
	}
	iter, err := rv.List()
	if err != nil {
		return s, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		b, err := parseBundle(iter.Value(), fmt.Sprintf("%s.refs[%d]", field, i))
		if err != nil {
			return s, err
		}
		s.Refs = append(s.Refs, b)
	}
	return s, nil
}

func parseBundle(v cue.Value, field string) (ir.ReferenceBundle, error) {
	var b ir.ReferenceBundle
	if err := checkFields(v, field, "reference_kind", "shape_identity", "local_index", "geometric_fingerprint"); err != nil {
		return b, err
	}
	kind, err := requiredString(v, "reference_kind", field+".reference_kind")
	if err != nil {
		return b, err
	}
	b.Kind = ir.ReferenceKind(kind)
	if !b.Kind.Valid() {
		return b, &CompileError{Field: field + ".reference_kind", Message: fmt.Sprintf("must be %q or %q", ir.KindEdge, ir.KindFace), Pos: v.Pos()}
	}
	if sv := v.LookupPath(cue.ParsePath("shape_identity")); sv.Exists() {
		if b.ShapeIdentity, err = sv.String(); err != nil {
			return b, formatCUEError(err)
		}
	}
	idx, err := requiredInt(v, "local_index", field+".local_index")
	if err != nil {
		return b, err
	}
	if idx < 0 {
		return b, &CompileError{Field: field + ".local_index", Message: "must be non-negative", Pos: v.Pos()}
	}
	b.LocalIndex = int(idx)

	fv := v.LookupPath(cue.ParsePath("geometric_fingerprint"))
	if !fv.Exists() {
		return b, &CompileError{Field: field + ".geometric_fingerprint", Message: "fingerprint is required", Pos: v.Pos()}
	}
	if err := checkFields(fv, field+".geometric_fingerprint", "cx", "cy", "cz", "nx", "ny", "nz", "extent"); err != nil {
		return b, err
	}
	fp := &b.Fingerprint
	for name, dst := range map[string]*int64{
		"cx": &fp.CX, "cy": &fp.CY, "cz": &fp.CZ,
		"nx": &fp.NX, "ny": &fp.NY, "nz": &fp.NZ,
		"extent": &fp.Extent,
	} {
		sub := fv.LookupPath(cue.ParsePath(name))
		if !sub.Exists() {
			continue
		}
		n, err := intOf(sub, field+".geometric_fingerprint."+name)
		if err != nil {
			return b, err
		}
		*dst = n
	}
	return b, nil
}

// parseValue converts a concrete CUE value into a parameter value.
// Floats and nulls are rejected because they cannot be digested stably.
func parseValue(v cue.Value, field string) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, concreteError(v, field, err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := intOf(v, field)
		if err != nil {
			return nil, err
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, concreteError(v, field, err)
		}
		return ir.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := ir.List{}
		for i := 0; iter.Next(); i++ {
			elem, err := parseValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := parseValue(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Field: field, Message: "float values are forbidden, use integer units instead", Pos: v.Pos()}
	case cue.NullKind:
		return nil, &CompileError{Field: field, Message: "null values are forbidden", Pos: v.Pos()}
	default:
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()), Pos: v.Pos()}
	}
}

// checkFields rejects labels outside allowed, so a misspelled field is an
// error rather than silently ignored.
func checkFields(v cue.Value, field string, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Label()
		known := false
		for _, a := range allowed {
			if a == label {
				known = true
				break
			}
		}
		if !known {
			return &CompileError{Field: field, Message: fmt.Sprintf("unknown field %q", label), Pos: iter.Value().Pos()}
		}
	}
	return nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return "", &CompileError{Field: field, Message: name + " is required", Pos: v.Pos()}
	}
	s, err := sv.String()
	if err != nil {
		return "", concreteError(sv, field, err)
	}
	if s == "" {
		return "", &CompileError{Field: field, Message: name + " must be non-empty", Pos: sv.Pos()}
	}
	return s, nil
}

func requiredInt(v cue.Value, name, field string) (int64, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return 0, &CompileError{Field: field, Message: name + " is required", Pos: v.Pos()}
	}
	return intOf(sv, field)
}

func intOf(v cue.Value, field string) (int64, error) {
	if k := v.IncompleteKind(); k != cue.IntKind {
		if k == cue.FloatKind || k == cue.NumberKind {
			return 0, &CompileError{Field: field, Message: "float values are forbidden, use integer units instead", Pos: v.Pos()}
		}
		return 0, &CompileError{Field: field, Message: fmt.Sprintf("must be an integer, got %v", k), Pos: v.Pos()}
	}
	n, err := v.Int64()
	if err != nil {
		return 0, concreteError(v, field, err)
	}
	return n, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return false, nil
	}
	b, err := sv.Bool()
	if err != nil {
		return false, concreteError(sv, "policy."+name, err)
	}
	return b, nil
}

func optionalStrings(v cue.Value, name, field string) ([]string, error) {
	sv := v.LookupPath(cue.ParsePath(name))
	out := []string{}
	if !sv.Exists() {
		return out, nil
	}
	iter, err := sv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		s, err := iter.Value().String()
		if err != nil {
			return nil, concreteError(iter.Value(), fmt.Sprintf("%s[%d]", field, i), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func concreteError(v cue.Value, field string, err error) error {
	if ce, ok := formatCUEError(err).(*CompileError); ok {
		return ce
	}
	return &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
