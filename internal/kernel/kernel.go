// Package kernel is the boundary to the external BREP geometry kernel.
//
// The rebuild core consumes a Kernel as an opaque collaborator: it executes
// feature operations and enumerates the entities of the shapes they
// produce. Memory is a scripted in-process implementation.
package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tnpcore/internal/ir"
)

// ErrCapabilityUnavailable reports that a required kernel capability is
// missing at runtime. It is distinct from a geometric failure.
var ErrCapabilityUnavailable = errors.New("kernel capability unavailable")

// Shape is an opaque kernel shape.
type Shape struct {
	ID string
}

// Handle identifies one entity of a shape by kind and enumeration ordinal.
// Handles are only meaningful within the pass that enumerated them.
type Handle struct {
	Shape Shape
	Kind  ir.ReferenceKind
	Index int
}

// Operation is one feature operation with its resolved inputs.
type Operation struct {
	FeatureID string
	Kind      ir.OperationKind
	Params    ir.Object
	// Inputs are the output shapes of the feature's inputs, in input order.
	Inputs []Shape
	// Handles maps slot name to the resolved entity handles.
	Handles map[string][]Handle
}

// Kernel is the geometry kernel boundary. Execute and Enumerate are
// blocking and non-preemptible.
type Kernel interface {
	Execute(ctx context.Context, op Operation) (Shape, error)
	Enumerate(ctx context.Context, s Shape, kind ir.ReferenceKind) ([]Handle, error)
	Identity(h Handle) (string, error)
	Fingerprint(h Handle) (ir.Fingerprint, error)
}

// GeometryError is raised by Execute when the kernel rejects an operation
// (an invalid fillet radius, a self-intersecting sweep). Partial is set
// when a multi-step operation confirmed an intermediate shape before
// failing.
type GeometryError struct {
	Op      ir.OperationKind
	Feature string
	Message string
	Partial *Shape
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Feature, e.Message)
}

// IsGeometryError reports whether err is a GeometryError.
func IsGeometryError(err error) bool {
	var ge *GeometryError
	return errors.As(err, &ge)
}

// CapabilityError names the unavailable capability. It matches
// ErrCapabilityUnavailable under errors.Is.
type CapabilityError struct {
	Capability string
	Detail     string
}

func (e *CapabilityError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("kernel capability %s unavailable", e.Capability)
	}
	return fmt.Sprintf("kernel capability %s unavailable: %s", e.Capability, e.Detail)
}

func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapabilityUnavailable
}
