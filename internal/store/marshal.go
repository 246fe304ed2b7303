package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tnpcore/internal/canon"
	"github.com/roach88/tnpcore/internal/ir"
)

// featureRow is a feature in its column encoding.
type featureRow struct {
	position   int
	id         string
	op         string
	params     string
	inputs     string
	slots      string
	status     string
	statusCode string
	stable     string
}

func marshalFeature(pos int, f *ir.Feature) (featureRow, error) {
	params := f.Params
	if params == nil {
		params = ir.Object{}
	}
	p, err := ir.MarshalCanonical(params)
	if err != nil {
		return featureRow{}, fmt.Errorf("feature %s: marshal parameters: %w", f.ID, err)
	}
	in, err := canon.EncodeInputs(f.Inputs)
	if err != nil {
		return featureRow{}, fmt.Errorf("feature %s: %w", f.ID, err)
	}
	slots, err := canon.EncodeSlots(f.Slots)
	if err != nil {
		return featureRow{}, fmt.Errorf("feature %s: %w", f.ID, err)
	}
	env, err := canon.EncodeEnvelope(f.Status)
	if err != nil {
		return featureRow{}, fmt.Errorf("feature %s: %w", f.ID, err)
	}
	return featureRow{
		position:   pos,
		id:         f.ID,
		op:         string(f.Op),
		params:     string(p),
		inputs:     string(in),
		slots:      string(slots),
		status:     string(env),
		statusCode: f.Status.Code,
		stable:     f.StableSnapshot,
	}, nil
}

// unmarshalFeature parses a row. Parameters go through ir.Object's
// UnmarshalJSON, which keeps integers exact.
func unmarshalFeature(r featureRow) (ir.Feature, error) {
	f := ir.Feature{
		ID:             r.id,
		Op:             ir.OperationKind(r.op),
		StableSnapshot: r.stable,
	}
	if err := json.Unmarshal([]byte(r.params), &f.Params); err != nil {
		return ir.Feature{}, fmt.Errorf("feature %s: unmarshal parameters: %w", r.id, err)
	}
	var err error
	if f.Inputs, err = canon.DecodeInputs([]byte(r.inputs)); err != nil {
		return ir.Feature{}, fmt.Errorf("feature %s: %w", r.id, err)
	}
	if f.Slots, err = canon.DecodeSlots([]byte(r.slots)); err != nil {
		return ir.Feature{}, fmt.Errorf("feature %s: %w", r.id, err)
	}
	if f.Status, err = canon.DecodeEnvelope([]byte(r.status)); err != nil {
		return ir.Feature{}, fmt.Errorf("feature %s: %w", r.id, err)
	}
	return f, nil
}
