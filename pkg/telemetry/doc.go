// Package telemetry bundles the observability components of riskctl:
// structured logging, Prometheus metrics, OpenTelemetry tracing and health
// probes.
//
//	tel, err := telemetry.New(&cfg.Telemetry, os.Stderr, "v1.0.0")
//	defer tel.Shutdown(context.Background())
//
//	tel.Logger.Info("evaluation complete", "controls", 4)
//	tel.Metrics.RecordEvaluation(metrics.StatusSuccess, elapsed, 4, 1)
//	ctx, span := tel.Tracer.Start(ctx, "assessment.evaluate")
package telemetry
