package config

import (
	"fmt"
	"sync"
)

var (
	// current is the process configuration installed by the CLI.
	current *Config
	mu      sync.RWMutex
)

// GetConfig returns the process configuration, or nil before SetConfig.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetConfig installs cfg as the process configuration.
func SetConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}

// ReloadConfig re-reads path (see Load) and installs the result. The
// current configuration is kept when loading or validation fails.
func ReloadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)
	return cfg, nil
}
