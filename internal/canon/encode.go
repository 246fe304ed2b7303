package canon

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/tnpcore/internal/ir"
)

// EncodeSlots is the persisted reference-bundle encoding: canonical JSON of
// the canonicalized slots.
func EncodeSlots(slots []ir.Slot) ([]byte, error) {
	data, err := ir.MarshalCanonical(slotsValue(CanonicalizeSlots(slots)))
	if err != nil {
		return nil, fmt.Errorf("encode slots: %w", err)
	}
	return data, nil
}

// DecodeSlots reads an EncodeSlots encoding. The result is canonical, so
// encoding it again reproduces the same bytes.
func DecodeSlots(data []byte) ([]ir.Slot, error) {
	var slots []ir.Slot
	if err := decodeStrict(data, &slots); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	for _, s := range slots {
		for i, ref := range s.Refs {
			if !ref.Kind.Valid() {
				return nil, fmt.Errorf("decode slots: slot %q ref %d: invalid kind %q", s.Name, i, ref.Kind)
			}
		}
	}
	return CanonicalizeSlots(slots), nil
}

// EncodeEnvelope renders a status envelope as canonical JSON.
func EncodeEnvelope(e ir.Envelope) ([]byte, error) {
	data, err := ir.MarshalCanonical(envelopeValue(e))
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope reads an EncodeEnvelope encoding.
func DecodeEnvelope(data []byte) (ir.Envelope, error) {
	var e ir.Envelope
	if err := decodeStrict(data, &e); err != nil {
		return ir.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}

// EncodePolicy renders a resolution policy as canonical JSON.
func EncodePolicy(p ir.Policy) ([]byte, error) {
	data, err := ir.MarshalCanonical(policyValue(p))
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	return data, nil
}

// DecodePolicy reads an EncodePolicy encoding.
func DecodePolicy(data []byte) (ir.Policy, error) {
	var p ir.Policy
	if err := decodeStrict(data, &p); err != nil {
		return ir.Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	return p, nil
}

// EncodeInputs renders a feature's input list as canonical JSON.
func EncodeInputs(inputs []string) ([]byte, error) {
	data, err := ir.MarshalCanonical(stringList(inputs))
	if err != nil {
		return nil, fmt.Errorf("encode inputs: %w", err)
	}
	return data, nil
}

// DecodeInputs reads an EncodeInputs encoding. It never returns nil.
func DecodeInputs(data []byte) ([]string, error) {
	inputs := []string{}
	if err := decodeStrict(data, &inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	return inputs, nil
}

// EncodeDocument renders a whole document as canonical JSON. The shape
// cache is not part of the encoding.
func EncodeDocument(doc *ir.Document) ([]byte, error) {
	v := documentValue(doc)
	v["name"] = ir.String(doc.Name)
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// DecodeDocument reads an EncodeDocument encoding.
func DecodeDocument(data []byte) (*ir.Document, error) {
	var doc ir.Document
	if err := decodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for i := range doc.Features {
		doc.Features[i].Slots = CanonicalizeSlots(doc.Features[i].Slots)
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	return dec.Decode(v)
}

func documentValue(doc *ir.Document) ir.Object {
	features := make(ir.List, len(doc.Features))
	for i := range doc.Features {
		features[i] = featureValue(&doc.Features[i])
	}
	return ir.Object{
		"policy":             policyValue(doc.Policy),
		"features":           features,
		"active_snapshot_id": ir.String(doc.ActiveSnapshot),
	}
}

func featureValue(f *ir.Feature) ir.Object {
	params := f.Params
	if params == nil {
		params = ir.Object{}
	}
	return ir.Object{
		"id":                 ir.String(f.ID),
		"operation_kind":     ir.String(f.Op),
		"parameters":         params,
		"inputs":             stringList(f.Inputs),
		"reference_slots":    slotsValue(CanonicalizeSlots(f.Slots)),
		"status":             envelopeValue(f.Status),
		"dependents":         stringList(f.Dependents),
		"stable_snapshot_id": ir.String(f.StableSnapshot),
	}
}

func policyValue(p ir.Policy) ir.Object {
	obj := ir.Object{
		"strict_topology_policy": ir.Bool(p.StrictTopology),
		"legacy_recovery":        ir.Bool(p.LegacyRecovery),
	}
	if p.Tolerance != nil {
		obj["tolerance"] = ir.Object{
			"centroid_um":     ir.Int(p.Tolerance.CentroidUM),
			"min_dot_ppm":     ir.Int(p.Tolerance.MinDotPPM),
			"extent_permille": ir.Int(p.Tolerance.ExtentPermille),
		}
	}
	return obj
}

func slotsValue(slots []ir.Slot) ir.List {
	out := make(ir.List, len(slots))
	for i, s := range slots {
		refs := make(ir.List, len(s.Refs))
		for j, b := range s.Refs {
			refs[j] = bundleValue(b)
		}
		out[i] = ir.Object{
			"name":   ir.String(s.Name),
			"source": ir.String(s.Source),
			"refs":   refs,
		}
	}
	return out
}

func bundleValue(b ir.ReferenceBundle) ir.Object {
	fp := b.Fingerprint
	obj := ir.Object{
		"reference_kind": ir.String(b.Kind),
		"shape_identity": ir.String(b.ShapeIdentity),
		"local_index":    ir.Int(b.LocalIndex),
		"geometric_fingerprint": ir.Object{
			"cx": ir.Int(fp.CX), "cy": ir.Int(fp.CY), "cz": ir.Int(fp.CZ),
			"nx": ir.Int(fp.NX), "ny": ir.Int(fp.NY), "nz": ir.Int(fp.NZ),
			"extent": ir.Int(fp.Extent),
		},
	}
	if b.Drift != nil {
		obj["drift"] = ir.Object{
			"reason": ir.String(b.Drift.Reason),
			"via":    ir.String(b.Drift.Via),
		}
	}
	return obj
}

func envelopeValue(e ir.Envelope) ir.Object {
	obj := ir.Object{
		"status":       ir.String(e.Status),
		"status_class": ir.String(e.StatusClass),
		"severity":     ir.String(e.Severity),
		"code":         ir.String(e.Code),
	}
	if e.Message != "" {
		obj["message"] = ir.String(e.Message)
	}
	if f := e.TNPFailure; f != nil {
		fv := ir.Object{
			"category":       ir.String(f.Category),
			"reference_kind": ir.String(f.Kind),
			"reason":         ir.String(f.Reason),
			"resolved_via":   ir.String(f.ResolvedVia),
		}
		if f.Slot != "" {
			fv["slot"] = ir.String(f.Slot)
		}
		obj["tnp_failure"] = fv
	}
	if r := e.Rollback; r != nil {
		obj["rollback"] = ir.Object{"from": ir.String(r.From), "to": ir.String(r.To)}
	}
	if d := e.RuntimeDependency; d != nil {
		dv := ir.Object{"capability": ir.String(d.Capability)}
		if d.Detail != "" {
			dv["detail"] = ir.String(d.Detail)
		}
		obj["runtime_dependency"] = dv
	}
	return obj
}

func stringList(ss []string) ir.List {
	out := make(ir.List, len(ss))
	for i, s := range ss {
		out[i] = ir.String(s)
	}
	return out
}
