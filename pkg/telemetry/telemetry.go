package telemetry

import (
	"context"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/riskctl/pkg/config"
	"mercator-hq/riskctl/pkg/telemetry/health"
	"mercator-hq/riskctl/pkg/telemetry/logging"
	"mercator-hq/riskctl/pkg/telemetry/metrics"
	"mercator-hq/riskctl/pkg/telemetry/tracing"
)

// Telemetry holds the process-wide observability components.
type Telemetry struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Health  *health.Checker

	level *slog.LevelVar
}

// New builds every component from cfg. Logs go to w.
func New(cfg *config.TelemetryConfig, w io.Writer, version string) (*Telemetry, error) {
	lc := logging.FromConfig(cfg.Logging)
	lc.Writer = w
	lc.LevelVar = new(slog.LevelVar)
	logger, err := logging.New(lc)
	if err != nil {
		return nil, err
	}

	tracer, err := tracing.New(&cfg.Tracing, version)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics.NewCollector(&cfg.Metrics, prometheus.NewRegistry()),
		Tracer:  tracer,
		Health:  health.New(cfg.Health.CheckTimeout),
		level:   lc.LevelVar,
	}, nil
}

// SetLogLevel changes the minimum level of Logger. An invalid level leaves
// the current one in place.
func (t *Telemetry) SetLogLevel(level string) error {
	return logging.SetLevel(t.level, level)
}

// LogLevel returns the current minimum level of Logger.
func (t *Telemetry) LogLevel() slog.Level {
	return t.level.Level()
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.Tracer.Shutdown(ctx)
}
