package rebuild

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tnpcore/internal/ir"
)

var (
	// ErrRebuildInProgress is returned when a pass is already in flight for
	// the document.
	ErrRebuildInProgress = errors.New("rebuild already in progress")

	// ErrDependencyCycle is returned when feature inputs form a cycle.
	ErrDependencyCycle = errors.New("feature dependency cycle")

	// ErrUnknownFeature is returned when the start feature does not exist.
	ErrUnknownFeature = ir.ErrUnknownFeature

	// ErrCancelled is returned when a pass was cancelled between features.
	ErrCancelled = errors.New("rebuild cancelled")
)

// RebuildError is a whole-pass failure. Feature-level failures are never
// errors; they are Status Envelopes.
type RebuildError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// PassToken identifies the affected pass, if one was started.
	PassToken string

	// Feature is the feature the error concerns, if any.
	Feature string

	// Cycle lists the features of a dependency cycle in document order.
	Cycle []string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes rebuild errors.
type ErrorCode string

const (
	ErrCodeCycleDetected  ErrorCode = "CYCLE_DETECTED"
	ErrCodeUnknownFeature ErrorCode = "UNKNOWN_FEATURE"
	ErrCodeInProgress     ErrorCode = "IN_PROGRESS"
	ErrCodeCancelled      ErrorCode = "CANCELLED"
	ErrCodeInvalidDoc     ErrorCode = "INVALID_DOCUMENT"
)

// Error implements the error interface.
func (e *RebuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Cycle) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Cycle, " -> "))
	}
	if e.PassToken != "" {
		fmt.Fprintf(&b, " (pass=%s)", e.PassToken)
	}
	return b.String()
}

// Unwrap exposes the cause so errors.Is matches the sentinels.
func (e *RebuildError) Unwrap() error {
	return e.Err
}

// IsCycleError returns true if err is a dependency cycle rejection.
func IsCycleError(err error) bool {
	var re *RebuildError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCycleDetected
	}
	return false
}

// IsInProgress returns true if err rejected a concurrent rebuild.
func IsInProgress(err error) bool {
	return errors.Is(err, ErrRebuildInProgress)
}

func newCycleError(cycle []string) *RebuildError {
	return &RebuildError{
		Code:    ErrCodeCycleDetected,
		Message: "feature inputs form a cycle",
		Cycle:   cycle,
		Err:     ErrDependencyCycle,
	}
}

func newUnknownFeatureError(id string) *RebuildError {
	return &RebuildError{
		Code:    ErrCodeUnknownFeature,
		Message: fmt.Sprintf("start feature %q not found", id),
		Feature: id,
		Err:     ErrUnknownFeature,
	}
}

func newCancelledError(token, feature string, cause error) *RebuildError {
	return &RebuildError{
		Code:      ErrCodeCancelled,
		Message:   fmt.Sprintf("cancelled before %s", feature),
		PassToken: token,
		Feature:   feature,
		Err:       errors.Join(ErrCancelled, cause),
	}
}
