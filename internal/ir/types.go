package ir

// ReferenceKind is the topological kind of a referenced entity.
type ReferenceKind string

const (
	KindEdge ReferenceKind = "Edge"
	KindFace ReferenceKind = "Face"
)

// Valid reports whether k is a known kind.
func (k ReferenceKind) Valid() bool {
	return k == KindEdge || k == KindFace
}

// Fingerprint is a positional/shape signature of an entity.
//
// All components are fixed-point:
//   - CX, CY, CZ: centroid in micrometres
//   - NX, NY, NZ: unit normal (faces) or tangent (edges), scaled by 1e6
//   - Extent: length in micrometres (edges) or area in square micrometres (faces)
type Fingerprint struct {
	CX     int64 `json:"cx" yaml:"cx"`
	CY     int64 `json:"cy" yaml:"cy"`
	CZ     int64 `json:"cz" yaml:"cz"`
	NX     int64 `json:"nx" yaml:"nx"`
	NY     int64 `json:"ny" yaml:"ny"`
	NZ     int64 `json:"nz" yaml:"nz"`
	Extent int64 `json:"extent" yaml:"extent"`
}

// DriftRecord marks a bundle that was re-derived from a Drift resolution.
// It persists until the reference is explicitly accepted.
type DriftRecord struct {
	Reason string      `json:"reason"`
	Via    ResolvedVia `json:"via"`
}

// ReferenceBundle is the stored reference to one topological entity.
// Immutable for the duration of one resolution attempt.
type ReferenceBundle struct {
	Kind          ReferenceKind `json:"reference_kind"`
	ShapeIdentity string        `json:"shape_identity"`
	LocalIndex    int           `json:"local_index"`
	Fingerprint   Fingerprint   `json:"geometric_fingerprint"`
	Drift         *DriftRecord  `json:"drift,omitempty"`
}

// Slot is a named logical reference slot of a feature ("profile",
// "path", "edges"). Source names the upstream feature whose output shape
// the references point into.
type Slot struct {
	Name   string            `json:"name"`
	Source string            `json:"source"`
	Refs   []ReferenceBundle `json:"refs"`
}

// Category classifies a TNP failure.
type Category string

const (
	CategoryMissing  Category = "Missing"
	CategoryMismatch Category = "Mismatch"
	CategoryDrift    Category = "Drift"
)

// ResolvedVia names the strategy family that produced a resolution.
type ResolvedVia string

const (
	ViaShapeIdentity ResolvedVia = "ShapeIdentity"
	ViaLocalIndex    ResolvedVia = "LocalIndex"
	ViaNone          ResolvedVia = "None"
)

// Reason codes. This set is closed; consumers branch on it.
const (
	ReasonShapeIdentityAmbiguous     = "shape_identity_ambiguous"
	ReasonGeometryHashAmbiguous      = "geometry_hash_ambiguous"
	ReasonGeometricAmbiguous         = "geometric_ambiguous"
	ReasonGeometryHashIndexConfirmed = "single_ref_pair_geometry_hash_index_confirmed"
	ReasonGeometricIndexConfirmed    = "single_ref_pair_geometric_index_confirmed"
	ReasonGeometryHashConflict       = "single_ref_pair_geometry_hash_shape_conflict_index_preferred"
	ReasonGeometricConflict          = "single_ref_pair_geometric_shape_conflict_index_preferred"
	ReasonGeometryHashRecovered      = "geometry_hash_shape_recovered"
	ReasonGeometricRecovered         = "geometric_shape_recovered"
	ReasonLegacyIndexRecovery        = "legacy_index_recovery"
	ReasonMissingStrict              = "shape_identity_missing_strict"
	ReasonNoCandidate                = "no_candidate"
	ReasonSourceFeatureMissing       = "source_feature_missing"
	ReasonSlotRefsCollapsed          = "slot_refs_collapsed"
)

// TNPFailure describes why a reference did not resolve cleanly.
type TNPFailure struct {
	Category    Category      `json:"category"`
	Kind        ReferenceKind `json:"reference_kind"`
	Reason      string        `json:"reason"`
	ResolvedVia ResolvedVia   `json:"resolved_via"`
	Slot        string        `json:"slot,omitempty"`
}

// Status is the public outcome of a feature evaluation.
type Status string

const (
	StatusPending  Status = ""
	StatusOk       Status = "Ok"
	StatusWarning  Status = "Warning"
	StatusError    Status = "Error"
	StatusBlocked  Status = "Blocked"
	StatusCritical Status = "Critical"
)

// Failed reports whether dependents of a feature in this status must be
// blocked.
func (s Status) Failed() bool {
	return s == StatusError || s == StatusBlocked || s == StatusCritical
}

// Rollback records the stable snapshot the document was on before a failed
// attempt (From) and the one it is left on (To).
type Rollback struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RuntimeDependency describes an unavailable external capability.
type RuntimeDependency struct {
	Capability string `json:"capability"`
	Detail     string `json:"detail,omitempty"`
}

// Envelope is the Status Envelope: the sole channel conveying a feature's
// outcome to UI and QA consumers. Field names and Code values are a
// stable contract.
type Envelope struct {
	Status            Status             `json:"status"`
	StatusClass       string             `json:"status_class"`
	Severity          string             `json:"severity"`
	Code              string             `json:"code"`
	Message           string             `json:"message,omitempty"`
	TNPFailure        *TNPFailure        `json:"tnp_failure,omitempty"`
	Rollback          *Rollback          `json:"rollback,omitempty"`
	RuntimeDependency *RuntimeDependency `json:"runtime_dependency,omitempty"`
}

// Tolerance parameterizes the geometric fingerprint match.
type Tolerance struct {
	// CentroidUM is the maximum centroid distance in micrometres.
	CentroidUM int64 `json:"centroid_um"`
	// MinDotPPM is the minimum direction dot product in parts per million.
	MinDotPPM int64 `json:"min_dot_ppm"`
	// ExtentPermille is the maximum relative extent difference in 1/1000.
	ExtentPermille int64 `json:"extent_permille"`
}

// Policy holds the resolution policy flags of a document.
type Policy struct {
	StrictTopology bool `json:"strict_topology_policy"`
	// LegacyRecovery is the explicit opt-in that re-enables index-based
	// recovery under StrictTopology.
	LegacyRecovery bool       `json:"legacy_recovery"`
	Tolerance      *Tolerance `json:"tolerance,omitempty"`
}

// Feature is one step of the parametric history.
type Feature struct {
	ID     string        `json:"id"`
	Op     OperationKind `json:"operation_kind"`
	Params Object        `json:"parameters"`
	// Inputs are the upstream features whose output this feature consumes.
	Inputs []string `json:"inputs"`
	Slots  []Slot   `json:"reference_slots"`
	Status Envelope `json:"status"`
	// Dependents is derived from every other feature's Inputs (see Relink).
	Dependents     []string `json:"dependents"`
	StableSnapshot string   `json:"stable_snapshot_id"`
}

// Slot returns the named slot, or nil.
func (f *Feature) Slot(name string) *Slot {
	for i := range f.Slots {
		if f.Slots[i].Name == name {
			return &f.Slots[i]
		}
	}
	return nil
}
