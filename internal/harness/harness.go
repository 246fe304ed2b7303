package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/tnpcore/internal/compiler"
	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/kernel"
	"github.com/roach88/tnpcore/internal/rebuild"
	"github.com/roach88/tnpcore/internal/store"
	"github.com/roach88/tnpcore/internal/testutil"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every step ran and every expectation held.
	Pass bool `json:"pass"`

	// Steps holds one entry per rebuilding step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Document is the workspace document after the last step.
	Document *ir.Document `json:"-"`
}

// StepResult records the pass a step triggered.
type StepResult struct {
	Op        string           `json:"op"`
	Feature   string           `json:"feature,omitempty"`
	Token     string           `json:"token"`
	Evaluated []string         `json:"evaluated"`
	Digest    string           `json:"digest"`
	Active    string           `json:"active"`
	Features  []FeatureOutcome `json:"features"`
}

// FeatureOutcome is a feature's envelope with snapshot ids rendered as the
// kernel shapes they name.
type FeatureOutcome struct {
	ID       string       `json:"id"`
	Envelope ir.Envelope  `json:"envelope"`
	Stable   string       `json:"stable"`
	Rollback *ir.Rollback `json:"rollback,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Steps: []StepResult{}, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness runs one scenario against a fresh workspace.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	orch     *rebuild.Orchestrator
	ws       *rebuild.Workspace
	logger   *slog.Logger

	// names maps snapshot ids to the shape ids they were derived from.
	names map[string]string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// A returned error means the scenario could not run; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := compileScenarioDocument(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	prefix := scenario.PassToken
	if prefix == "" {
		prefix = scenario.Name
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	orch := rebuild.New(kernel.NewMemory(&scenario.Kernel),
		rebuild.WithLogger(logger),
		rebuild.WithPassTokens(testutil.NewSequenceToken(prefix)),
	)

	h := &Harness{
		scenario: scenario,
		store:    st,
		orch:     orch,
		logger:   logger,
		names:    make(map[string]string),
	}
	h.ws = rebuild.NewWorkspace(orch, doc, rebuild.WithWorkspaceLogger(logger))
	h.learn(doc)

	result := NewResult()
	var lastDigest string
	for i, step := range scenario.Steps {
		if step.Op == OpReload {
			if err := h.reload(ctx); err != nil {
				return nil, fmt.Errorf("steps[%d] reload: %w", i, err)
			}
			continue
		}

		sr, err := h.runStep(ctx, step)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
			break
		}
		for _, msg := range checkStep(i, step, sr, lastDigest) {
			result.AddError(msg)
		}
		result.Steps = append(result.Steps, sr)
		lastDigest = sr.Digest
	}
	result.Document = h.ws.Current()
	return result, nil
}

func compileScenarioDocument(s *Scenario) (*ir.Document, error) {
	v := cuecontext.New().CompileString(s.Document, cue.Filename(s.Name+".cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("scenario %s: document: %w", s.Name, err)
	}
	docs, errs := compiler.CompileAll(v)
	if len(errs) > 0 {
		return nil, fmt.Errorf("scenario %s: document: %w", s.Name, errs[0])
	}
	if len(docs) != 1 {
		return nil, fmt.Errorf("scenario %s: document must declare exactly one document, found %d", s.Name, len(docs))
	}
	return docs[0], nil
}

// runStep applies the step's edit, persists the rebuilt document and its
// pass, and captures every envelope.
func (h *Harness) runStep(ctx context.Context, step Step) (StepResult, error) {
	edit, err := h.edit(step)
	if err != nil {
		return StepResult{}, err
	}
	res, err := h.ws.Apply(ctx, edit)
	if err != nil {
		return StepResult{}, err
	}
	h.learn(res.Document)

	if err := h.store.SaveDocument(ctx, res.Document, res.Pass.Seq); err != nil {
		return StepResult{}, fmt.Errorf("save: %w", err)
	}
	if err := h.store.RecordPass(ctx, res.Document.Name, res.Pass); err != nil {
		return StepResult{}, fmt.Errorf("record pass: %w", err)
	}

	sr := StepResult{
		Op:        step.Op,
		Feature:   step.Feature,
		Token:     res.Pass.Token,
		Evaluated: append([]string{}, res.Pass.Evaluated...),
		Digest:    res.Pass.Digest,
		Active:    h.name(res.Document.ActiveSnapshot),
	}
	if step.Op == OpRebuild {
		sr.Feature = step.From
	}
	for _, f := range res.Document.Features {
		sr.Features = append(sr.Features, FeatureOutcome{
			ID:       f.ID,
			Envelope: f.Status,
			Stable:   h.name(f.StableSnapshot),
			Rollback: h.rollback(f.Status.Rollback),
		})
	}
	h.logger.Info("scenario step completed", "op", step.Op, "pass", res.Pass.Token, "evaluated", len(res.Pass.Evaluated))
	return sr, nil
}

func (h *Harness) edit(step Step) (rebuild.Edit, error) {
	switch step.Op {
	case OpRebuild:
		return rebuild.RebuildFrom{From: step.From}, nil
	case OpSetParams:
		params, err := ir.ObjectFromMap(step.Params)
		if err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
		return rebuild.SetParams{Feature: step.Feature, Params: params}, nil
	case OpAddFeature:
		v := cuecontext.New().CompileString(step.FeatureCUE)
		f, err := compiler.CompileFeature(v)
		if err != nil {
			return nil, fmt.Errorf("feature_cue: %w", err)
		}
		return rebuild.AddFeature{Feature: f}, nil
	case OpDeleteFeature:
		return rebuild.DeleteFeature{Feature: step.Feature}, nil
	case OpAcceptReferences:
		return rebuild.AcceptReferences{Feature: step.Feature}, nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// reload round-trips the current document through SQLite and starts a new
// workspace on it. The loaded document carries no shape cache.
func (h *Harness) reload(ctx context.Context) error {
	doc := h.ws.Current()
	if err := h.store.SaveDocument(ctx, doc, h.orch.Clock().Current()); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	loaded, err := h.store.LoadDocument(ctx, doc.Name)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	h.ws.Close()
	h.ws = rebuild.NewWorkspace(h.orch, loaded, rebuild.WithWorkspaceLogger(h.logger))
	return nil
}

// learn registers the snapshot ids every feature of doc could produce from
// the scripted shapes.
func (h *Harness) learn(doc *ir.Document) {
	for _, f := range doc.Features {
		for _, sh := range h.scenario.Kernel.Shapes {
			h.names[ir.SnapshotID(f.ID, sh.ID)] = sh.ID
		}
	}
}

func (h *Harness) name(snapshot string) string {
	if snapshot == ir.GenesisSnapshot || snapshot == "" {
		return ir.GenesisSnapshot
	}
	if n, ok := h.names[snapshot]; ok {
		return n
	}
	return "unknown:" + snapshot
}

func (h *Harness) rollback(rb *ir.Rollback) *ir.Rollback {
	if rb == nil {
		return nil
	}
	return &ir.Rollback{From: h.name(rb.From), To: h.name(rb.To)}
}
