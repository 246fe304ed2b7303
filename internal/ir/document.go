package ir

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownFeature is returned when an edit or lookup names a feature the
// document does not contain.
var ErrUnknownFeature = errors.New("unknown feature")

// Document is an ordered parametric feature history.
type Document struct {
	Name     string    `json:"name"`
	Policy   Policy    `json:"policy"`
	Features []Feature `json:"features"`
	// ActiveSnapshot is the geometry view the document is currently on.
	ActiveSnapshot string `json:"active_snapshot_id"`
	// Shapes is the shared shape cache: snapshot id -> kernel shape id.
	// It is transient and never persisted or digested.
	Shapes map[string]string `json:"-"`
}

// Feature returns the feature with the given id, or nil.
func (d *Document) Feature(id string) *Feature {
	if i := d.Index(id); i >= 0 {
		return &d.Features[i]
	}
	return nil
}

// Index returns the document position of the feature, or -1.
func (d *Document) Index(id string) int {
	for i := range d.Features {
		if d.Features[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Name:           d.Name,
		Policy:         d.Policy,
		ActiveSnapshot: d.ActiveSnapshot,
		Features:       make([]Feature, len(d.Features)),
	}
	if d.Policy.Tolerance != nil {
		tol := *d.Policy.Tolerance
		out.Policy.Tolerance = &tol
	}
	for i := range d.Features {
		out.Features[i] = d.Features[i].Clone()
	}
	if d.Shapes != nil {
		out.Shapes = make(map[string]string, len(d.Shapes))
		for k, v := range d.Shapes {
			out.Shapes[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the feature.
func (f Feature) Clone() Feature {
	out := f
	out.Params = f.Params.Clone()
	out.Inputs = slices.Clone(f.Inputs)
	out.Dependents = slices.Clone(f.Dependents)
	out.Status = f.Status.Clone()
	out.Slots = make([]Slot, len(f.Slots))
	for i, s := range f.Slots {
		out.Slots[i] = Slot{Name: s.Name, Source: s.Source, Refs: CloneBundles(s.Refs)}
	}
	return out
}

// Clone returns a deep copy of the envelope.
func (e Envelope) Clone() Envelope {
	out := e
	if e.TNPFailure != nil {
		f := *e.TNPFailure
		out.TNPFailure = &f
	}
	if e.Rollback != nil {
		r := *e.Rollback
		out.Rollback = &r
	}
	if e.RuntimeDependency != nil {
		r := *e.RuntimeDependency
		out.RuntimeDependency = &r
	}
	return out
}

// CloneBundles deep-copies a bundle list.
func CloneBundles(refs []ReferenceBundle) []ReferenceBundle {
	if refs == nil {
		return nil
	}
	out := make([]ReferenceBundle, len(refs))
	for i, b := range refs {
		out[i] = b
		if b.Drift != nil {
			d := *b.Drift
			out[i].Drift = &d
		}
	}
	return out
}

// Relink recomputes every feature's Dependents from the other features'
// Inputs. Dependents are listed in document order.
func (d *Document) Relink() {
	deps := make(map[string][]string, len(d.Features))
	for _, f := range d.Features {
		for _, in := range f.Inputs {
			if !slices.Contains(deps[in], f.ID) {
				deps[in] = append(deps[in], f.ID)
			}
		}
	}
	for i := range d.Features {
		d.Features[i].Dependents = deps[d.Features[i].ID]
		if d.Features[i].Dependents == nil {
			d.Features[i].Dependents = []string{}
		}
	}
}

// Validate checks structural well-formedness: unique ids, known operations
// and reference kinds, valid snapshot ids. Dangling inputs are allowed; a
// deleted upstream feature surfaces at rebuild time as a Missing reference.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Features))
	for i, f := range d.Features {
		if f.ID == "" {
			return fmt.Errorf("feature %d: empty id", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("feature %s: duplicate id", f.ID)
		}
		seen[f.ID] = true
		if !f.Op.Valid() {
			return fmt.Errorf("feature %s: unknown operation %q", f.ID, f.Op)
		}
		if slices.Contains(f.Inputs, f.ID) {
			return fmt.Errorf("feature %s: feature cannot consume its own output", f.ID)
		}
		slotNames := make(map[string]bool, len(f.Slots))
		for _, s := range f.Slots {
			if s.Name == "" {
				return fmt.Errorf("feature %s: slot with empty name", f.ID)
			}
			if slotNames[s.Name] {
				return fmt.Errorf("feature %s: duplicate slot %q", f.ID, s.Name)
			}
			slotNames[s.Name] = true
			for j, ref := range s.Refs {
				if !ref.Kind.Valid() {
					return fmt.Errorf("feature %s: slot %q ref %d: invalid kind %q", f.ID, s.Name, j, ref.Kind)
				}
				if ref.LocalIndex < 0 {
					return fmt.Errorf("feature %s: slot %q ref %d: negative local_index", f.ID, s.Name, j)
				}
			}
		}
		if f.StableSnapshot != "" && !ValidSnapshotID(f.StableSnapshot) {
			return fmt.Errorf("feature %s: invalid stable snapshot id %q", f.ID, f.StableSnapshot)
		}
	}
	if d.ActiveSnapshot != "" && !ValidSnapshotID(d.ActiveSnapshot) {
		return fmt.Errorf("invalid active snapshot id %q", d.ActiveSnapshot)
	}
	return nil
}

// Normalize fills defaults for fields a freshly authored document leaves
// empty: genesis snapshots, empty collections and derived dependents.
func (d *Document) Normalize() {
	if d.ActiveSnapshot == "" {
		d.ActiveSnapshot = GenesisSnapshot
	}
	for i := range d.Features {
		f := &d.Features[i]
		if f.StableSnapshot == "" {
			f.StableSnapshot = GenesisSnapshot
		}
		if f.Params == nil {
			f.Params = Object{}
		}
		if f.Inputs == nil {
			f.Inputs = []string{}
		}
		if f.Slots == nil {
			f.Slots = []Slot{}
		}
		for j := range f.Slots {
			if f.Slots[j].Refs == nil {
				f.Slots[j].Refs = []ReferenceBundle{}
			}
		}
	}
	d.Relink()
}

// SetParams replaces a feature's parameters.
func (d *Document) SetParams(id string, params Object) error {
	f := d.Feature(id)
	if f == nil {
		return fmt.Errorf("set params %s: %w", id, ErrUnknownFeature)
	}
	f.Params = params.Clone()
	if f.Params == nil {
		f.Params = Object{}
	}
	return nil
}

// AddFeature appends a feature to the end of the history.
func (d *Document) AddFeature(f Feature) error {
	if d.Feature(f.ID) != nil {
		return fmt.Errorf("add feature %s: duplicate id", f.ID)
	}
	d.Features = append(d.Features, f.Clone())
	d.Normalize()
	return nil
}

// DeleteFeature removes a feature and its own reference bundles.
// Dependents keep their inputs and bundles untouched.
func (d *Document) DeleteFeature(id string) error {
	i := d.Index(id)
	if i < 0 {
		return fmt.Errorf("delete feature %s: %w", id, ErrUnknownFeature)
	}
	d.Features = slices.Delete(d.Features, i, i+1)
	d.Relink()
	return nil
}

// AcceptReferences clears the drift records of a feature's bundles,
// acknowledging its drifted references as the new baseline.
func (d *Document) AcceptReferences(id string) error {
	f := d.Feature(id)
	if f == nil {
		return fmt.Errorf("accept references %s: %w", id, ErrUnknownFeature)
	}
	for i := range f.Slots {
		for j := range f.Slots[i].Refs {
			f.Slots[i].Refs[j].Drift = nil
		}
	}
	return nil
}
