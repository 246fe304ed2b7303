package compiler

import (
	"fmt"

	"github.com/roach88/tnpcore/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyID           = "E201" // feature id is empty
	ErrDuplicateID       = "E202" // feature id declared twice
	ErrUnknownOperation  = "E203" // operation_kind outside the closed set
	ErrContractViolation = "E204" // inputs or slots break the operation contract
	ErrDanglingInput     = "E205" // input names no feature of the document
	ErrSelfInput         = "E206" // feature consumes its own output
	ErrInputCycle        = "E207" // inputs form a cycle
	ErrInvalidReference  = "E208" // bad reference kind or local index
	ErrInvalidTolerance  = "E209" // tolerance out of range
)

// ValidationError represents one problem found in a document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks an authored document. Unlike ir.Document.Validate it
// reports every problem, and it is stricter: an authored document may not
// name a missing input or contain an input cycle.
func Validate(doc *ir.Document) []ValidationError {
	var errs []ValidationError
	ids := make(map[string]bool, len(doc.Features))

	if tol := doc.Policy.Tolerance; tol != nil {
		if tol.MinDotPPM > 1_000_000 {
			errs = append(errs, ValidationError{
				Field:   "policy.tolerance.min_dot_ppm",
				Message: fmt.Sprintf("%d exceeds 1000000", tol.MinDotPPM),
				Code:    ErrInvalidTolerance,
			})
		}
		if tol.CentroidUM < 0 || tol.ExtentPermille < 0 || tol.MinDotPPM < 0 {
			errs = append(errs, ValidationError{
				Field:   "policy.tolerance",
				Message: "tolerances must be non-negative",
				Code:    ErrInvalidTolerance,
			})
		}
	}

	for i := range doc.Features {
		f := &doc.Features[i]
		if f.ID == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("features[%d].id", i),
				Message: "id is required",
				Code:    ErrEmptyID,
			})
		}
		if ids[f.ID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("features[%d].id", i),
				Message: fmt.Sprintf("duplicate feature id %q", f.ID),
				Code:    ErrDuplicateID,
			})
		}
		ids[f.ID] = true
	}

	for i := range doc.Features {
		f := &doc.Features[i]
		field := fmt.Sprintf("features[%d]", i)

		if !f.Op.Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".operation_kind",
				Message: fmt.Sprintf("unknown operation %q", f.Op),
				Code:    ErrUnknownOperation,
			})
			continue
		}

		for j, in := range f.Inputs {
			switch {
			case in == f.ID:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.inputs[%d]", field, j),
					Message: fmt.Sprintf("feature %s consumes itself", f.ID),
					Code:    ErrSelfInput,
				})
			case !ids[in]:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.inputs[%d]", field, j),
					Message: fmt.Sprintf("unknown input %q", in),
					Code:    ErrDanglingInput,
				})
			}
		}

		for si, s := range f.Slots {
			for ri, ref := range s.Refs {
				if !ref.Kind.Valid() || ref.LocalIndex < 0 {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s.reference_slots[%d].refs[%d]", field, si, ri),
						Message: fmt.Sprintf("invalid reference kind %q or index %d", ref.Kind, ref.LocalIndex),
						Code:    ErrInvalidReference,
					})
				}
			}
		}

		if err := ir.CheckContract(f); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    ErrContractViolation,
			})
		}
	}

	for _, c := range FindCycles(doc) {
		errs = append(errs, ValidationError{
			Field:   "features",
			Message: c.Message,
			Code:    ErrInputCycle,
		})
	}

	return errs
}
