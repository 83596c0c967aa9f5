// Package tracing wires OpenTelemetry tracing for riskctl.
//
// When telemetry.tracing.enabled is set, spans are batched to an OTLP gRPC
// collector; otherwise every span is a noop. Assessment operations open one
// span each (assessment.evaluate, assessment.diff, assessment.portfolio,
// model.load) and the HTTP server extracts W3C trace context from requests.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "assessment.evaluate")
//	defer func() { tracing.End(span, err) }()
package tracing
