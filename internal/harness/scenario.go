package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tnpcore/internal/kernel"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is CUE source declaring exactly one `document.<name>`.
	Document string `yaml:"document"`

	// Kernel scripts the geometry kernel.
	Kernel kernel.Script `yaml:"kernel"`

	// PassToken prefixes the numbered pass tokens. Defaults to the name.
	PassToken string `yaml:"pass_token,omitempty"`

	// Steps run in order against one workspace.
	Steps []Step `yaml:"steps"`
}

// Step is one edit followed by the rebuild it triggers.
type Step struct {
	Op string `yaml:"op"`

	// Feature is the target of set_params, delete_feature and
	// accept_references.
	Feature string `yaml:"feature,omitempty"`

	// From is the start feature of a rebuild step; empty rebuilds all.
	From string `yaml:"from,omitempty"`

	// Params replaces the feature parameters (set_params).
	Params map[string]any `yaml:"params,omitempty"`

	// FeatureCUE is a CUE feature struct (add_feature).
	FeatureCUE string `yaml:"feature_cue,omitempty"`

	// Evaluated, when set, is the exact evaluation order of the pass.
	Evaluated []string `yaml:"evaluated,omitempty"`

	// DigestUnchanged asserts the pass digest equals the previous pass's.
	DigestUnchanged bool `yaml:"digest_unchanged,omitempty"`

	// Expect maps feature ids to expected envelopes. Only the fields
	// given are compared.
	Expect map[string]Expect `yaml:"expect,omitempty"`
}

// Expect is a subset match on one feature's Status Envelope.
type Expect struct {
	Status   string `yaml:"status,omitempty"`
	Code     string `yaml:"code,omitempty"`
	Category string `yaml:"category,omitempty"`
	Reason   string `yaml:"reason,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Via      string `yaml:"via,omitempty"`
	Slot     string `yaml:"slot,omitempty"`

	// RollbackEqual, when set, asserts rollback.from == rollback.to (true)
	// or that the view moved (false). A feature without a rollback fails
	// either way.
	RollbackEqual *bool `yaml:"rollback_equal,omitempty"`

	// Capability is the runtime dependency of a Critical outcome.
	Capability string `yaml:"capability,omitempty"`
}

// Step operations.
const (
	OpRebuild          = "rebuild"
	OpSetParams        = "set_params"
	OpAddFeature       = "add_feature"
	OpDeleteFeature    = "delete_feature"
	OpAcceptReferences = "accept_references"
	OpReload           = "reload"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml file of dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	sort.Strings(matches)
	out := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Document == "" {
		return fmt.Errorf("document is required")
	}

	if err := s.Kernel.Validate(); err != nil {
		return fmt.Errorf("kernel: %w", err)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpRebuild, OpReload:
	case OpSetParams:
		if st.Feature == "" {
			return fmt.Errorf("steps[%d]: feature is required for set_params", index)
		}
		if st.Params == nil {
			return fmt.Errorf("steps[%d]: params is required for set_params (use empty map if none)", index)
		}
	case OpDeleteFeature, OpAcceptReferences:
		if st.Feature == "" {
			return fmt.Errorf("steps[%d]: feature is required for %s", index, st.Op)
		}
	case OpAddFeature:
		if st.FeatureCUE == "" {
			return fmt.Errorf("steps[%d]: feature_cue is required for add_feature", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	if st.Op == OpReload && (len(st.Expect) > 0 || len(st.Evaluated) > 0 || st.DigestUnchanged) {
		return fmt.Errorf("steps[%d]: reload does not rebuild and takes no expectations", index)
	}
	return nil
}
