// Package config provides configuration management for riskctl.
//
// Configuration is read from a YAML file, completed with defaults, overridden
// from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("riskctl.yaml")
//
// The CLI uses Load, which treats a missing file as "use the defaults":
//
//	cfg, err := config.Load(flagConfigPath)
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention RISKCTL_SECTION_FIELD:
//
//   - RISKCTL_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - RISKCTL_MODEL_REPOSITORY overrides model.repository
//   - RISKCTL_HISTORY_DRIVER overrides history.driver
//
// Values that fail to parse are ignored.
//
// # Process Configuration
//
// The CLI installs the loaded configuration with SetConfig. A running server
// re-reads its file with ReloadConfig on SIGHUP and picks up the result from
// GetConfig:
//
//	if _, err := config.ReloadConfig(path); err != nil {
//	    return err
//	}
//	cfg := config.GetConfig()
//
// Prefer passing an explicit *Config in tests.
package config
