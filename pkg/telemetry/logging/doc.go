// Package logging builds the structured loggers used across riskctl.
//
// Loggers are plain *slog.Logger values. New wraps the chosen handler so
// that records logged with InfoContext and friends pick up the request id,
// system id and model reference stored in the context:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	ctx = logging.WithSystemID(ctx, "billing-api")
//	logger.InfoContext(ctx, "evaluation complete", "controls", 4)
package logging
