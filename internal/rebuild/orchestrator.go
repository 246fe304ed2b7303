package rebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/tnpcore/internal/canon"
	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/kernel"
	"github.com/roach88/tnpcore/internal/resolve"
	"github.com/roach88/tnpcore/internal/rollback"
	"github.com/roach88/tnpcore/internal/status"
)

// Orchestrator runs rebuild passes against a kernel. It holds no document
// state; every pass works on a clone of the document it is given.
type Orchestrator struct {
	kernel  kernel.Kernel
	logger  *slog.Logger
	clock   *Clock
	tokens  PassTokenGenerator
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *instruments
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock sets the logical clock stamping passes.
func WithClock(c *Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithPassTokens sets the pass token generator. Default: UUIDv7Generator.
func WithPassTokens(g PassTokenGenerator) Option {
	return func(o *Orchestrator) { o.tokens = g }
}

// WithMeter sets the otel meter. Default: the global meter provider.
func WithMeter(m metric.Meter) Option {
	return func(o *Orchestrator) { o.meter = m }
}

// WithTracer sets the otel tracer. Default: the global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// New creates an Orchestrator over k.
func New(k kernel.Kernel, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		kernel: k,
		logger: slog.Default(),
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}
	o.metrics = newInstruments(o.meter, o.logger)
	return o
}

// Clock returns the orchestrator's logical clock.
func (o *Orchestrator) Clock() *Clock {
	return o.clock
}

// Pass describes one completed rebuild pass.
type Pass struct {
	Token     string
	Seq       int64
	Start     string
	Evaluated []string
	Counts    map[ir.Status]int
	Rollbacks []rollback.Entry

	Digest             string
	SummaryFingerprint string
}

// Result is the rebuilt document and its pass record.
type Result struct {
	Document *ir.Document
	Pass     Pass
}

// Failed reports whether any feature of the document ended in
// Error, Blocked or Critical.
func (r *Result) Failed() bool {
	for _, f := range r.Document.Features {
		if f.Status.Status.Failed() {
			return true
		}
	}
	return false
}

// passState is owned by exactly one pass.
type passState struct {
	doc      *ir.Document
	rc       resolve.Context
	cache    *entityCache
	shapes   map[string]kernel.Shape
	partials map[string]string
	mgr      *rollback.Manager
	logger   *slog.Logger
}

// Rebuild evaluates doc starting from feature from ("" for all features)
// and returns the updated copy. doc itself is not modified.
//
// Feature failures are reported in envelopes; an error is returned only
// for a cycle, an unknown start feature, an invalid document or
// cancellation, and then no document is produced.
func (o *Orchestrator) Rebuild(ctx context.Context, doc *ir.Document, from string) (*Result, error) {
	started := time.Now()

	work := doc.Clone()
	work.Normalize()
	if err := work.Validate(); err != nil {
		return nil, &RebuildError{Code: ErrCodeInvalidDoc, Message: err.Error(), Err: err}
	}

	if cycles := ir.InputCycles(work); len(cycles) > 0 {
		return nil, newCycleError(cycles[0])
	}
	g := buildGraph(work)
	start := -1
	if from != "" {
		i, ok := g.pos[from]
		if !ok {
			return nil, newUnknownFeatureError(from)
		}
		start = i
	}

	token := o.tokens.Generate()
	seq := o.clock.Next()
	logger := o.logger.With("pass", token, "seq", seq)

	ctx, span := startPassSpan(ctx, o.tracer, token, from, len(work.Features))
	defer span.End()

	st := &passState{
		doc:      work,
		rc:       resolve.NewContext(work),
		cache:    newEntityCache(o.kernel),
		shapes:   make(map[string]kernel.Shape, len(work.Features)),
		partials: make(map[string]string),
		mgr:      rollback.NewManager(work.ActiveSnapshot),
		logger:   logger,
	}
	for _, f := range work.Features {
		if id, ok := work.Shapes[f.StableSnapshot]; ok && hasOutput(&f) {
			st.shapes[f.ID] = kernel.Shape{ID: id}
		}
	}
	marked := g.scope(start, func(i int) bool {
		_, ok := st.shapes[g.ids[i]]
		return ok
	})

	logger.Info("rebuild pass starting", "from", from, "features", len(work.Features))

	pass := Pass{Token: token, Seq: seq, Start: from, Counts: make(map[ir.Status]int)}
	for _, i := range g.order() {
		if !marked[i] {
			continue
		}
		f := &work.Features[i]
		if err := ctx.Err(); err != nil {
			logger.Info("rebuild pass cancelled", "before", f.ID)
			span.SetStatus(codes.Error, "cancelled")
			o.metrics.recordPass(ctx, time.Since(started).Seconds(), true)
			return nil, newCancelledError(token, f.ID, err)
		}
		o.evaluate(ctx, st, f)
		pass.Evaluated = append(pass.Evaluated, f.ID)
		pass.Counts[f.Status.Status]++
	}

	work.ActiveSnapshot = st.mgr.Active()
	work.Shapes = make(map[string]string, len(st.shapes)+len(st.partials))
	for _, f := range work.Features {
		if s, ok := st.shapes[f.ID]; ok {
			work.Shapes[f.StableSnapshot] = s.ID
		}
	}
	for snap, id := range st.partials {
		work.Shapes[snap] = id
	}
	pass.Rollbacks = st.mgr.Log()

	var err error
	if pass.Digest, err = canon.Digest(work); err != nil {
		return nil, fmt.Errorf("rebuild: %w", err)
	}
	if pass.SummaryFingerprint, err = canon.SummaryFingerprint(work); err != nil {
		return nil, fmt.Errorf("rebuild: %w", err)
	}

	span.SetAttributes(
		attribute.Int("tnp.evaluated", len(pass.Evaluated)),
		attribute.String("tnp.digest", pass.Digest),
	)
	o.metrics.recordPass(ctx, time.Since(started).Seconds(), false)
	logger.Info("rebuild pass complete",
		"evaluated", len(pass.Evaluated),
		"ok", pass.Counts[ir.StatusOk],
		"warning", pass.Counts[ir.StatusWarning],
		"error", pass.Counts[ir.StatusError],
		"blocked", pass.Counts[ir.StatusBlocked],
		"critical", pass.Counts[ir.StatusCritical],
		"digest", pass.Digest,
	)
	return &Result{Document: work, Pass: pass}, nil
}

func hasOutput(f *ir.Feature) bool {
	return f.Status.Status == ir.StatusOk || f.Status.Status == ir.StatusWarning
}

// evaluate is the failure boundary of one feature: whatever happens is
// recorded in f.Status and never escapes.
func (o *Orchestrator) evaluate(ctx context.Context, st *passState, f *ir.Feature) {
	ctx, span := startFeatureSpan(ctx, o.tracer, f)
	defer span.End()

	delete(st.shapes, f.ID)
	out := o.attempt(ctx, st, f)
	f.Status = status.Build(out)

	span.SetAttributes(attribute.String("tnp.status", string(f.Status.Status)), attribute.String("tnp.code", f.Status.Code))
	o.metrics.recordFeature(ctx, f.Op, f.Status.Status)

	log := st.logger.With("feature", f.ID, "op", f.Op, "status", f.Status.Status, "code", f.Status.Code)
	switch f.Status.Status {
	case ir.StatusOk:
		log.Debug("feature rebuilt", "snapshot", f.StableSnapshot)
	case ir.StatusWarning:
		log.Warn("feature rebuilt with drift",
			"slot", f.Status.TNPFailure.Slot,
			"reason", f.Status.TNPFailure.Reason,
			"via", f.Status.TNPFailure.ResolvedVia,
		)
	default:
		span.SetStatus(codes.Error, f.Status.Code)
		log.Error("feature failed", "message", f.Status.Message)
	}
}

func (o *Orchestrator) attempt(ctx context.Context, st *passState, f *ir.Feature) status.Outcome {
	for _, in := range f.Inputs {
		if up := st.doc.Feature(in); up != nil && up.Status.Status.Failed() {
			return status.Outcome{
				Kind:     status.Blocked,
				Rollback: ptr(st.mgr.OnBlocked(f)),
				Message:  fmt.Sprintf("upstream %s is %s", in, up.Status.Status),
			}
		}
	}

	if err := ir.CheckContract(f); err != nil {
		return failed(st, f, status.ContractInvalid, err.Error())
	}

	slots := canon.CanonicalizeSlots(f.Slots)
	results := make([]resolve.SlotResult, len(slots))
	views := make([]*shapeView, len(slots))
	handles := make(map[string][]kernel.Handle, len(slots))
	var drift *ir.TNPFailure

	for i, slot := range slots {
		var topo *resolve.Topology
		if shape, ok := st.shapes[slot.Source]; ok && st.doc.Feature(slot.Source) != nil {
			v, err := st.cache.view(ctx, shape)
			if err != nil {
				return kernelFailure(st, f, err)
			}
			views[i] = v
			topo = &v.topo
		}

		res := resolve.ResolveSlot(st.rc, slot, topo)
		for j, r := range res.Resolutions {
			o.metrics.recordResolution(ctx, res.Refs[j].Kind, r)
			st.logger.Debug("reference resolved",
				"feature", f.ID, "slot", slot.Name, "ref", j,
				"tier", r.Tier, "confidence", r.Confidence, "index", r.Index)
		}
		if res.Failure != nil {
			out := failed(st, f, status.Unresolved, fmt.Sprintf("slot %s: %s", res.Failure.Slot, res.Failure.Reason))
			out.Failure = res.Failure
			return out
		}
		if drift == nil && res.Drift != nil {
			drift = res.Drift
		}
		results[i] = res
		for j, r := range res.Resolutions {
			handles[slot.Name] = append(handles[slot.Name], views[i].handle(res.Refs[j].Kind, r.Index))
		}
	}

	inputs := make([]kernel.Shape, 0, len(f.Inputs))
	for _, in := range f.Inputs {
		inputs = append(inputs, st.shapes[in])
	}
	shape, err := o.kernel.Execute(ctx, kernel.Operation{
		FeatureID: f.ID,
		Kind:      f.Op,
		Params:    f.Params.Clone(),
		Inputs:    inputs,
		Handles:   handles,
	})
	if err != nil {
		return kernelFailure(st, f, err)
	}

	for i := range slots {
		slots[i].Refs = rederive(results[i], views[i])
	}
	f.Slots = slots
	f.StableSnapshot = ir.SnapshotID(f.ID, shape.ID)
	st.shapes[f.ID] = shape
	st.mgr.Confirm(f.StableSnapshot)

	if drift != nil {
		return status.Outcome{Kind: status.Drifted, Failure: drift}
	}
	return status.Outcome{Kind: status.Succeeded}
}

// rederive replaces a slot's bundles with fresh ones read from the
// resolved entities. Drifted references keep a drift record.
func rederive(res resolve.SlotResult, v *shapeView) []ir.ReferenceBundle {
	out := make([]ir.ReferenceBundle, len(res.Resolutions))
	for j, r := range res.Resolutions {
		kind := res.Refs[j].Kind
		e := v.entity(kind, r.Index)
		b := ir.ReferenceBundle{
			Kind:          kind,
			ShapeIdentity: e.Identity,
			LocalIndex:    e.Index,
			Fingerprint:   e.Fingerprint,
		}
		if r.Drifted() {
			b.Drift = &ir.DriftRecord{Reason: r.Failure.Reason, Via: r.Failure.ResolvedVia}
		}
		out[j] = b
	}
	return canon.Canonicalize(out)
}

func kernelFailure(st *passState, f *ir.Feature, err error) status.Outcome {
	var ce *kernel.CapabilityError
	if errors.Is(err, kernel.ErrCapabilityUnavailable) {
		out := failed(st, f, status.Unavailable, err.Error())
		out.Dependency = &ir.RuntimeDependency{Capability: "unknown"}
		if errors.As(err, &ce) {
			out.Dependency = &ir.RuntimeDependency{Capability: ce.Capability, Detail: ce.Detail}
		}
		return out
	}

	partial := ""
	var ge *kernel.GeometryError
	if errors.As(err, &ge) && ge.Partial != nil {
		partial = ir.SnapshotID(f.ID, ge.Partial.ID)
		st.partials[partial] = ge.Partial.ID
	}
	return status.Outcome{
		Kind:     status.OperationFailed,
		Rollback: ptr(st.mgr.OnFailure(f, partial)),
		Message:  err.Error(),
	}
}

func failed(st *passState, f *ir.Feature, kind status.Kind, msg string) status.Outcome {
	return status.Outcome{
		Kind:     kind,
		Rollback: ptr(st.mgr.OnFailure(f, "")),
		Message:  msg,
	}
}

func ptr[T any](v T) *T { return &v }
