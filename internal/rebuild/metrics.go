package rebuild

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/tnpcore/internal/ir"
	"github.com/roach88/tnpcore/internal/resolve"
)

const instrumentationName = "tnpcore.rebuild"

// instruments are the pass metrics. A nil instrument is skipped, so a
// meter that fails to create one degrades observability, not rebuilds.
type instruments struct {
	features    metric.Int64Counter
	resolutions metric.Int64Counter
	passes      metric.Int64Counter
	passLatency metric.Float64Histogram
}

func newInstruments(m metric.Meter, logger *slog.Logger) *instruments {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	var (
		ins        instruments
		err        error
		initErrors []string
	)

	ins.features, err = m.Int64Counter("tnp_features_evaluated_total",
		metric.WithDescription("Features evaluated, by resulting status"),
	)
	if err != nil {
		initErrors = append(initErrors, "features: "+err.Error())
	}

	ins.resolutions, err = m.Int64Counter("tnp_resolutions_total",
		metric.WithDescription("Reference resolutions, by tier and outcome category"),
	)
	if err != nil {
		initErrors = append(initErrors, "resolutions: "+err.Error())
	}

	ins.passes, err = m.Int64Counter("tnp_rebuild_passes_total",
		metric.WithDescription("Completed rebuild passes"),
	)
	if err != nil {
		initErrors = append(initErrors, "passes: "+err.Error())
	}

	ins.passLatency, err = m.Float64Histogram("tnp_rebuild_pass_duration_seconds",
		metric.WithDescription("Wall time of one rebuild pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		initErrors = append(initErrors, "pass_latency: "+err.Error())
	}

	if len(initErrors) > 0 {
		logger.Error("failed to initialize some rebuild metrics (observability degraded)",
			slog.Int("failed_count", len(initErrors)),
			slog.Any("errors", initErrors),
		)
	}
	return &ins
}

func (ins *instruments) recordFeature(ctx context.Context, op ir.OperationKind, s ir.Status) {
	if ins.features == nil {
		return
	}
	ins.features.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.String("status", string(s)),
	))
}

func (ins *instruments) recordResolution(ctx context.Context, kind ir.ReferenceKind, r resolve.Resolution) {
	if ins.resolutions == nil {
		return
	}
	category := "Strong"
	if r.Failure != nil {
		category = string(r.Failure.Category)
	}
	ins.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("tier", string(r.Tier)),
		attribute.String("category", category),
	))
}

func (ins *instruments) recordPass(ctx context.Context, seconds float64, cancelled bool) {
	if ins.passes != nil && !cancelled {
		ins.passes.Add(ctx, 1)
	}
	if ins.passLatency != nil {
		ins.passLatency.Record(ctx, seconds, metric.WithAttributes(attribute.Bool("cancelled", cancelled)))
	}
}

func startPassSpan(ctx context.Context, tracer trace.Tracer, token, from string, features int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Orchestrator.Rebuild",
		trace.WithAttributes(
			attribute.String("tnp.pass_token", token),
			attribute.String("tnp.from", from),
			attribute.Int("tnp.features", features),
		),
	)
}

func startFeatureSpan(ctx context.Context, tracer trace.Tracer, f *ir.Feature) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Orchestrator.evaluate",
		trace.WithAttributes(
			attribute.String("tnp.feature", f.ID),
			attribute.String("tnp.operation", string(f.Op)),
		),
	)
}
