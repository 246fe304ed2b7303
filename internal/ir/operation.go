package ir

import "fmt"

// OperationKind is the closed set of feature operations. Each kind carries
// a fixed reference-slot contract; there is no open-ended dispatch.
type OperationKind string

const (
	OpPrimitive OperationKind = "primitive"
	OpExtrude   OperationKind = "extrude"
	OpFillet    OperationKind = "fillet"
	OpChamfer   OperationKind = "chamfer"
	OpSweep     OperationKind = "sweep"
	OpHole      OperationKind = "hole"
	OpShell     OperationKind = "shell"
)

// SlotContract describes one slot an operation requires.
// Max == 0 means unbounded.
type SlotContract struct {
	Name string
	Kind ReferenceKind
	Min  int
	Max  int
}

var contracts = map[OperationKind][]SlotContract{
	OpPrimitive: nil,
	OpExtrude:   {{Name: "profile", Kind: KindFace, Min: 1, Max: 1}},
	OpFillet:    {{Name: "edges", Kind: KindEdge, Min: 1}},
	OpChamfer:   {{Name: "edges", Kind: KindEdge, Min: 1}},
	OpSweep: {
		{Name: "profile", Kind: KindFace, Min: 1, Max: 1},
		{Name: "path", Kind: KindEdge, Min: 1},
	},
	OpHole:  {{Name: "face", Kind: KindFace, Min: 1, Max: 1}},
	OpShell: {{Name: "faces", Kind: KindFace, Min: 1}},
}

// Valid reports whether k is a known operation.
func (k OperationKind) Valid() bool {
	_, ok := contracts[k]
	return ok
}

// Contract returns the slot contract of k in declaration order.
func (k OperationKind) Contract() []SlotContract {
	return contracts[k]
}

// OperationKinds returns every known operation.
func OperationKinds() []OperationKind {
	return []OperationKind{OpPrimitive, OpExtrude, OpFillet, OpChamfer, OpSweep, OpHole, OpShell}
}

// CheckContract validates a feature's inputs and slots against its
// operation's contract:
//   - primitives take no inputs
//   - every other operation takes at least one input
//   - exactly the contracted slots are present, with the right kinds and counts
//   - every slot's source is one of the inputs, and every input feeds a slot
func CheckContract(f *Feature) error {
	if !f.Op.Valid() {
		return fmt.Errorf("feature %s: unknown operation %q", f.ID, f.Op)
	}
	contract := f.Op.Contract()
	if len(contract) == 0 {
		if len(f.Inputs) > 0 || len(f.Slots) > 0 {
			return fmt.Errorf("feature %s: %s takes no inputs or slots", f.ID, f.Op)
		}
		return nil
	}
	if len(f.Inputs) == 0 {
		return fmt.Errorf("feature %s: %s requires an input", f.ID, f.Op)
	}
	if len(f.Slots) != len(contract) {
		return fmt.Errorf("feature %s: %s expects %d slots, has %d", f.ID, f.Op, len(contract), len(f.Slots))
	}

	inputs := make(map[string]bool, len(f.Inputs))
	for _, in := range f.Inputs {
		inputs[in] = false
	}
	for _, c := range contract {
		slot := f.Slot(c.Name)
		if slot == nil {
			return fmt.Errorf("feature %s: missing slot %q", f.ID, c.Name)
		}
		if _, ok := inputs[slot.Source]; !ok {
			return fmt.Errorf("feature %s: slot %q source %q is not an input", f.ID, c.Name, slot.Source)
		}
		inputs[slot.Source] = true
		n := len(slot.Refs)
		if n < c.Min || (c.Max > 0 && n > c.Max) {
			return fmt.Errorf("feature %s: slot %q has %d references", f.ID, c.Name, n)
		}
		for i, ref := range slot.Refs {
			if ref.Kind != c.Kind {
				return fmt.Errorf("feature %s: slot %q ref %d is %s, want %s", f.ID, c.Name, i, ref.Kind, c.Kind)
			}
		}
	}
	for _, in := range f.Inputs {
		if !inputs[in] {
			return fmt.Errorf("feature %s: input %q feeds no slot", f.ID, in)
		}
	}
	return nil
}
