package config

import "time"

// Config is the root configuration structure for riskctl.
// It contains the sections for the HTTP server, the system workspace, the
// knowledge model source, evaluation history and telemetry.
type Config struct {
	// Server contains HTTP API server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Workspace locates the portfolio manifest and the per-system fact files.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Model contains the default knowledge model location, the git repository
	// used to resolve git:<rev> references, and watch mode.
	Model ModelConfig `yaml:"model"`

	// History contains configuration for the evaluation history store and its
	// retention schedule.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies accepted by the API.
	// Default: 1MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS configures cross-origin access for browser clients served from
	// another origin, such as a standalone editor UI.
	CORS CORSConfig `yaml:"cors"`

	// TLS enables HTTPS on the listener.
	TLS TLSConfig `yaml:"tls"`

	// Auth guards the /api routes with API keys. Health, version and metrics
	// endpoints stay open.
	Auth AuthConfig `yaml:"auth"`

	// RateLimit throttles /api requests per client.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds the request rate of each API client. Clients are
// identified by API key name when auth is enabled and by remote IP
// otherwise. Zero disables an individual limit.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained rate; bursts of up to twice this
	// many requests are accepted.
	// Default: 10
	RequestsPerSecond int `yaml:"requests_per_second"`

	// RequestsPerMinute caps the rate over a minute.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// MaxConcurrent caps in-flight requests per client.
	MaxConcurrent int `yaml:"max_concurrent"`

	// IdleTTL is how long an idle client's state is kept.
	// Default: 10m
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// TLSConfig contains HTTPS settings for the API server.
type TLSConfig struct {
	// Enabled indicates whether TLS should be used.
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate file.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key file.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept ("1.2" or "1.3").
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadCerts reloads the key pair when either file changes on disk.
	ReloadCerts bool `yaml:"reload_certs"`
}

// AuthConfig contains API key authentication settings.
type AuthConfig struct {
	// Enabled requires a valid API key on every /api request.
	Enabled bool `yaml:"enabled"`

	// APIKeys lists the accepted keys.
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig is one accepted API key. Clients send it as
// "Authorization: Bearer <key>" or in the X-API-Key header.
type APIKeyConfig struct {
	// Name identifies the client in logs.
	Name string `yaml:"name"`

	// Key is the secret value.
	Key string `yaml:"key"`

	// Disabled rejects the key without removing it.
	Disabled bool `yaml:"disabled"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	// Enabled controls whether CORS headers are sent.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists origins allowed to call the API. "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists the methods allowed in preflight responses.
	// Default: GET, POST, PUT, OPTIONS
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists the request headers allowed in preflight responses.
	// Default: Content-Type, X-Request-ID, Authorization, X-API-Key
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is how long browsers may cache a preflight response.
	// Default: 1h
	MaxAge time.Duration `yaml:"max_age"`
}

// WorkspaceConfig contains configuration for the system fact store.
type WorkspaceConfig struct {
	// Root is the workspace directory. Relative fact paths in the portfolio
	// manifest resolve against it.
	// Default: "."
	Root string `yaml:"root"`

	// PortfolioFile is the manifest file name, relative to Root.
	// Default: "portfolio.yaml"
	PortfolioFile string `yaml:"portfolio_file"`

	// SystemsDir is where new systems get their fact files, relative to Root.
	// Default: "systems"
	SystemsDir string `yaml:"systems_dir"`

	// Concurrency bounds how many systems a portfolio evaluation processes
	// at once.
	// Default: 4
	Concurrency int `yaml:"concurrency"`
}

// ModelConfig contains configuration for knowledge model resolution.
type ModelConfig struct {
	// Dir is the model directory used when no model reference is given.
	// Default: "model"
	Dir string `yaml:"dir"`

	// Repository is the git working tree used to resolve "git:<rev>"
	// references. Empty disables git references.
	Repository string `yaml:"repository"`

	// Subdir is the model directory inside the repository tree.
	// Default: "model"
	Subdir string `yaml:"subdir"`

	// Watch enables reloading the default model when its files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce coalesces bursts of file events before a reload.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}

// HistoryConfig contains configuration for evaluation history.
type HistoryConfig struct {
	// Enabled controls whether evaluations are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Driver selects the storage backend.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go), "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file for the sqlite drivers.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays is how long records are kept. 0 keeps them forever.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for the retention pruner.
	// Default: "0 3 * * *" (3 AM daily)
	PruneSchedule string `yaml:"prune_schedule"`

	// QueryLimit is the default and maximum number of records a query returns.
	// Default: 100
	QueryLimit int `yaml:"query_limit"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "riskctl"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "riskctl"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
