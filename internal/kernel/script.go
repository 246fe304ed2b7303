package kernel

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tnpcore/internal/ir"
)

// Script drives the Memory kernel: a catalogue of shapes and the rules that
// map feature operations onto them.
type Script struct {
	Shapes []ShapeSpec `yaml:"shapes"`
	Rules  []Rule      `yaml:"rules"`
}

// ShapeSpec lists a shape's entities in enumeration order.
type ShapeSpec struct {
	ID    string       `yaml:"id"`
	Faces []EntitySpec `yaml:"faces,omitempty"`
	Edges []EntitySpec `yaml:"edges,omitempty"`
}

// EntitySpec describes one entity. An empty Identity means the kernel has
// no persistent name for it; one is derived from its position.
type EntitySpec struct {
	Identity    string         `yaml:"identity,omitempty"`
	Fingerprint ir.Fingerprint `yaml:"fingerprint"`
}

// Rule maps a feature execution to an outcome. Rules are tried in order;
// the first whose Feature matches and whose When is a subset of the
// operation parameters wins. Exactly one of Shape, Error or Unavailable
// is set.
type Rule struct {
	Feature string         `yaml:"feature"`
	When    map[string]any `yaml:"when,omitempty"`

	Shape string `yaml:"shape,omitempty"`

	// Error fails the operation with a GeometryError. Partial optionally
	// names a confirmed intermediate shape.
	Error   string `yaml:"error,omitempty"`
	Partial string `yaml:"partial,omitempty"`

	// Unavailable fails the operation with a CapabilityError.
	Unavailable string `yaml:"unavailable,omitempty"`
}

// LoadScript reads and validates a kernel script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kernel script: %w", err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScript parses YAML with strict field validation.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse kernel script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kernel script: %w", err)
	}
	return &s, nil
}

// Validate checks shape uniqueness and rule references.
func (s *Script) Validate() error {
	shapes := make(map[string]bool, len(s.Shapes))
	for i, sh := range s.Shapes {
		if sh.ID == "" {
			return fmt.Errorf("shapes[%d]: id is required", i)
		}
		if shapes[sh.ID] {
			return fmt.Errorf("shapes[%d]: duplicate id %q", i, sh.ID)
		}
		shapes[sh.ID] = true
	}
	for i, r := range s.Rules {
		if r.Feature == "" {
			return fmt.Errorf("rules[%d]: feature is required", i)
		}
		set := 0
		for _, v := range []string{r.Shape, r.Error, r.Unavailable} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			return fmt.Errorf("rules[%d]: exactly one of shape, error, unavailable is required", i)
		}
		if r.Shape != "" && !shapes[r.Shape] {
			return fmt.Errorf("rules[%d]: unknown shape %q", i, r.Shape)
		}
		if r.Partial != "" {
			if r.Error == "" {
				return fmt.Errorf("rules[%d]: partial requires error", i)
			}
			if !shapes[r.Partial] {
				return fmt.Errorf("rules[%d]: unknown partial shape %q", i, r.Partial)
			}
		}
		if _, err := ir.ObjectFromMap(r.When); err != nil {
			return fmt.Errorf("rules[%d].when: %w", i, err)
		}
	}
	return nil
}

func (s *Script) shape(id string) *ShapeSpec {
	for i := range s.Shapes {
		if s.Shapes[i].ID == id {
			return &s.Shapes[i]
		}
	}
	return nil
}

func (sh *ShapeSpec) entities(kind ir.ReferenceKind) []EntitySpec {
	if kind == ir.KindFace {
		return sh.Faces
	}
	return sh.Edges
}
