package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1 << 20)
	DefaultCORSMaxAge      = time.Hour
	DefaultTLSMinVersion   = "1.3"
	DefaultRateLimitRPS    = 10
	DefaultRateLimitIdle   = 10 * time.Minute

	// Workspace defaults
	DefaultWorkspaceRoot        = "."
	DefaultPortfolioFile        = "portfolio.yaml"
	DefaultSystemsDir           = "systems"
	DefaultPortfolioConcurrency = 4

	// Model defaults
	DefaultModelDir      = "model"
	DefaultModelSubdir   = "model"
	DefaultModelDebounce = 250 * time.Millisecond

	// History defaults
	DefaultHistoryDriver        = "sqlite"
	DefaultHistoryPath          = "data/history.db"
	DefaultHistoryBusyTimeout   = 5 * time.Second
	DefaultHistoryRetentionDays = 90
	DefaultHistoryPruneSchedule = "0 3 * * *"
	DefaultHistoryQueryLimit    = 100

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "riskctl"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "riskctl"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// Default returns a configuration with every default applied. Booleans that
// default to true are set here because ApplyDefaults cannot tell an explicit
// false from an omitted field.
func Default() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Tracing.Insecure = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Content-Type", "X-Request-ID", "Authorization", "X-API-Key"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	rl := &cfg.Server.RateLimit
	if rl.RequestsPerSecond == 0 && rl.RequestsPerMinute == 0 && rl.MaxConcurrent == 0 {
		rl.RequestsPerSecond = DefaultRateLimitRPS
	}
	if rl.IdleTTL == 0 {
		rl.IdleTTL = DefaultRateLimitIdle
	}

	// Workspace defaults
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = DefaultWorkspaceRoot
	}
	if cfg.Workspace.PortfolioFile == "" {
		cfg.Workspace.PortfolioFile = DefaultPortfolioFile
	}
	if cfg.Workspace.SystemsDir == "" {
		cfg.Workspace.SystemsDir = DefaultSystemsDir
	}
	if cfg.Workspace.Concurrency == 0 {
		cfg.Workspace.Concurrency = DefaultPortfolioConcurrency
	}

	// Model defaults
	if cfg.Model.Dir == "" {
		cfg.Model.Dir = DefaultModelDir
	}
	if cfg.Model.Subdir == "" {
		cfg.Model.Subdir = DefaultModelSubdir
	}
	if cfg.Model.Debounce == 0 {
		cfg.Model.Debounce = DefaultModelDebounce
	}

	// History defaults
	if cfg.History.Driver == "" {
		cfg.History.Driver = DefaultHistoryDriver
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.BusyTimeout == 0 {
		cfg.History.BusyTimeout = DefaultHistoryBusyTimeout
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = DefaultHistoryRetentionDays
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultHistoryPruneSchedule
	}
	if cfg.History.QueryLimit == 0 {
		cfg.History.QueryLimit = DefaultHistoryQueryLimit
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
