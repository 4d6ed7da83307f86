package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/sdbus/pkg/busobj"
)

// DispatchTracer adapts the package's span helpers to busobj.Tracer, so an
// Engine can be built with WithTracer(telemetry.NewDispatchTracer()) without
// pkg/busobj importing OpenTelemetry directly.
type DispatchTracer struct{}

// NewDispatchTracer returns a busobj.Tracer backed by the configured global
// tracer provider. If telemetry was never initialized, the underlying
// otel.Tracer is a no-op, so spans are started and ended cheaply either way.
func NewDispatchTracer() DispatchTracer {
	return DispatchTracer{}
}

// StartDispatchSpan implements busobj.Tracer.
func (DispatchTracer) StartDispatchSpan(ctx context.Context, path busobj.ObjectPath, iface, member string) (context.Context, func(err error)) {
	spanCtx, span := StartDispatchSpan(ctx, string(path), iface, member)
	return spanCtx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
