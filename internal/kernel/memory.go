package kernel

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/tnpcore/internal/ir"
)

// Memory is a Kernel whose results come from a Script. Shapes are pure
// functions of the script, so any shape id it produced stays enumerable
// for the life of the script.
type Memory struct {
	script *Script

	mu    sync.Mutex
	calls []string
}

var _ Kernel = (*Memory)(nil)

// NewMemory returns a kernel driven by s.
func NewMemory(s *Script) *Memory {
	return &Memory{script: s}
}

// Execute applies the first matching rule.
func (m *Memory) Execute(ctx context.Context, op Operation) (Shape, error) {
	m.mu.Lock()
	m.calls = append(m.calls, op.FeatureID)
	m.mu.Unlock()

	if err := m.checkHandles(op); err != nil {
		return Shape{}, err
	}

	rule, err := m.match(op)
	if err != nil {
		return Shape{}, err
	}
	switch {
	case rule == nil:
		return Shape{}, &GeometryError{Op: op.Kind, Feature: op.FeatureID, Message: "no kernel rule matches"}
	case rule.Unavailable != "":
		return Shape{}, &CapabilityError{Capability: rule.Unavailable, Detail: string(op.Kind)}
	case rule.Error != "":
		ge := &GeometryError{Op: op.Kind, Feature: op.FeatureID, Message: rule.Error}
		if rule.Partial != "" {
			ge.Partial = &Shape{ID: rule.Partial}
		}
		return Shape{}, ge
	}
	return Shape{ID: rule.Shape}, nil
}

// checkHandles rejects handles that do not point into the operation's
// input shapes.
func (m *Memory) checkHandles(op Operation) error {
	for slot, hs := range op.Handles {
		for _, h := range hs {
			if !slices.Contains(op.Inputs, h.Shape) {
				return &GeometryError{Op: op.Kind, Feature: op.FeatureID,
					Message: fmt.Sprintf("slot %s: handle into foreign shape %s", slot, h.Shape.ID)}
			}
		}
	}
	return nil
}

func (m *Memory) match(op Operation) (*Rule, error) {
	for i := range m.script.Rules {
		r := &m.script.Rules[i]
		if r.Feature != op.FeatureID {
			continue
		}
		when, err := ir.ObjectFromMap(r.When)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		ok, err := subset(when, op.Params)
		if err != nil {
			return nil, err
		}
		if ok {
			return r, nil
		}
	}
	return nil, nil
}

func subset(want, have ir.Object) (bool, error) {
	for k, wv := range want {
		hv, ok := have[k]
		if !ok {
			return false, nil
		}
		a, err := ir.MarshalCanonical(wv)
		if err != nil {
			return false, err
		}
		b, err := ir.MarshalCanonical(hv)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(a, b) {
			return false, nil
		}
	}
	return true, nil
}

// Enumerate lists the entities of kind in enumeration order.
func (m *Memory) Enumerate(ctx context.Context, s Shape, kind ir.ReferenceKind) ([]Handle, error) {
	sh := m.script.shape(s.ID)
	if sh == nil {
		return nil, fmt.Errorf("enumerate: unknown shape %q", s.ID)
	}
	ents := sh.entities(kind)
	out := make([]Handle, len(ents))
	for i := range ents {
		out[i] = Handle{Shape: s, Kind: kind, Index: i}
	}
	return out, nil
}

// Identity returns the entity's persistent name, or one derived from its
// shape and position when the script gives none.
func (m *Memory) Identity(h Handle) (string, error) {
	e, err := m.entity(h)
	if err != nil {
		return "", err
	}
	if e.Identity != "" {
		return e.Identity, nil
	}
	return ir.EntityIdentity(h.Kind, fmt.Sprintf("%s#%d", h.Shape.ID, h.Index)), nil
}

// Fingerprint returns the entity's geometric fingerprint.
func (m *Memory) Fingerprint(h Handle) (ir.Fingerprint, error) {
	e, err := m.entity(h)
	if err != nil {
		return ir.Fingerprint{}, err
	}
	return e.Fingerprint, nil
}

func (m *Memory) entity(h Handle) (*EntitySpec, error) {
	sh := m.script.shape(h.Shape.ID)
	if sh == nil {
		return nil, fmt.Errorf("unknown shape %q", h.Shape.ID)
	}
	ents := sh.entities(h.Kind)
	if h.Index < 0 || h.Index >= len(ents) {
		return nil, fmt.Errorf("shape %s: %s %d out of range", h.Shape.ID, h.Kind, h.Index)
	}
	return &ents[h.Index], nil
}

// Calls returns the feature ids passed to Execute, in call order.
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Reset clears the call log.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
