package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/honeycombio/otel-config-go/otelconfig"
)

var GlobalTracer = otel.Tracer("fittrack-backend")

// EndSpanWithErrCheck marks the span failed when err is non-nil, then ends it.
func EndSpanWithErrCheck(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// HoneycombSetup configures the OpenTelemetry SDK via the honeycomb distro.
// Returns a shutdown func that must be called on service exit. When tracing is
// disabled the returned shutdown is a no-op.
func HoneycombSetup(tracingEnabled bool, serviceName string) (func(), error) {
	if !tracingEnabled {
		return func() {}, nil
	}

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
	)
	if err != nil {
		return nil, err
	}

	return otelShutdown, nil
}
