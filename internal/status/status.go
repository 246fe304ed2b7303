// Package status assembles Status Envelopes, the single structured result
// every feature evaluation produces for UI and QA consumers.
package status

import (
	"github.com/roach88/tnpcore/internal/ir"
)

// Stable envelope codes. External consumers branch on these; never rename.
const (
	CodeOk                    = "ok"
	CodeRefDrift              = "tnp_ref_drift"
	CodeRefMissing            = "tnp_ref_missing"
	CodeRefMismatch           = "tnp_ref_mismatch"
	CodeFinalizeFailed        = "rebuild_finalize_failed"
	CodeContractInvalid       = "feature_contract_invalid"
	CodeBlockedByUpstream     = "blocked_by_upstream_error"
	CodeCapabilityUnavailable = "ocp_api_unavailable"
)

// Kind is the internal outcome of one feature evaluation.
type Kind int

const (
	// Succeeded: operation ran and every slot resolved Strong.
	Succeeded Kind = iota
	// Drifted: operation ran, at least one slot resolved via Drift.
	Drifted
	// Unresolved: a slot resolution was Missing or Mismatch.
	Unresolved
	// OperationFailed: the kernel raised a geometry error.
	OperationFailed
	// ContractInvalid: inputs or slots violate the operation contract.
	ContractInvalid
	// Blocked: an upstream dependency failed.
	Blocked
	// Unavailable: a required kernel capability is missing.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Drifted:
		return "drifted"
	case Unresolved:
		return "unresolved"
	case OperationFailed:
		return "operation_failed"
	case ContractInvalid:
		return "contract_invalid"
	case Blocked:
		return "blocked"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is everything the builder needs.
type Outcome struct {
	Kind       Kind
	Failure    *ir.TNPFailure
	Rollback   *ir.Rollback
	Dependency *ir.RuntimeDependency
	Message    string
}

type row struct {
	status   ir.Status
	class    string
	severity string
	code     string
}

var table = map[Kind]row{
	Succeeded:       {ir.StatusOk, "normal", "info", CodeOk},
	Drifted:         {ir.StatusWarning, "warning_recoverable", "warning", CodeRefDrift},
	Unresolved:      {ir.StatusError, "error", "error", CodeRefMissing},
	OperationFailed: {ir.StatusError, "error", "error", CodeFinalizeFailed},
	ContractInvalid: {ir.StatusError, "error", "error", CodeContractInvalid},
	Blocked:         {ir.StatusBlocked, "blocked", "error", CodeBlockedByUpstream},
	Unavailable:     {ir.StatusCritical, "runtime_dependency", "critical", CodeCapabilityUnavailable},
}

// Build maps an outcome onto the public status/status_class/severity/code
// envelope. It is a pure function of o. Blocked envelopes never carry a
// TNP failure; only Drifted and Unresolved do.
func Build(o Outcome) ir.Envelope {
	r, ok := table[o.Kind]
	if !ok {
		r = table[OperationFailed]
	}
	env := ir.Envelope{
		Status:      r.status,
		StatusClass: r.class,
		Severity:    r.severity,
		Code:        r.code,
		Message:     o.Message,
	}
	if o.Kind == Unresolved && o.Failure != nil && o.Failure.Category == ir.CategoryMismatch {
		env.Code = CodeRefMismatch
	}
	if (o.Kind == Drifted || o.Kind == Unresolved) && o.Failure != nil {
		f := *o.Failure
		env.TNPFailure = &f
	}
	if o.Rollback != nil && o.Kind != Succeeded && o.Kind != Drifted {
		rb := *o.Rollback
		env.Rollback = &rb
	}
	if o.Kind == Unavailable && o.Dependency != nil {
		d := *o.Dependency
		env.RuntimeDependency = &d
	}
	return env
}
