// Package config loads and validates the choretrack configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/choretrack/choretrack/internal/chore"
)

// Default values for Config.
const (
	DefaultServerPort   = 8732
	DefaultTickSeconds  = 60
	DefaultSaveInterval = 300
	DefaultLogLevel     = "info"
)

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig struct {
	Port int `yaml:"port" json:"port"`
}

// EngineConfig configures the evaluation loop.
type EngineConfig struct {
	TickSeconds         int `yaml:"tick_seconds" json:"tick_seconds"`
	SaveIntervalSeconds int `yaml:"save_interval_seconds" json:"save_interval_seconds"`
}

// Config is the full choretrack configuration.
type Config struct {
	LogLevel string         `yaml:"log_level" json:"log_level"`
	Server   *ServerConfig  `yaml:"server,omitempty" json:"server,omitempty"`
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Chores   []chore.Config `yaml:"chores" json:"chores"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Engine: EngineConfig{
			TickSeconds:         DefaultTickSeconds,
			SaveIntervalSeconds: DefaultSaveInterval,
		},
	}
}

// DefaultServerConfig returns a ServerConfig with sensible default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{Port: DefaultServerPort}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// LoadConfig reads and parses .choretrack/config.yaml from the given base
// path. A missing file yields the defaults with no chores. Applies defaults
// for any missing fields.
func LoadConfig(basePath string) (*Config, error) {
	configPath := filepath.Join(basePath, ".choretrack", "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateConfig checks that all config values are valid. Detector-level
// validation happens when each chore is constructed; here we catch only the
// structural problems a chore constructor cannot see, like duplicate IDs.
func ValidateConfig(cfg *Config) error {
	if cfg.Engine.TickSeconds <= 0 {
		return ValidationError{Field: "engine.tick_seconds", Message: "must be positive"}
	}
	if cfg.Engine.SaveIntervalSeconds <= 0 {
		return ValidationError{Field: "engine.save_interval_seconds", Message: "must be positive"}
	}
	if cfg.Server != nil {
		if err := ValidateServerConfig(cfg.Server); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(cfg.Chores))
	for i, c := range cfg.Chores {
		field := fmt.Sprintf("chores[%d]", i)
		if c.ID == "" {
			return ValidationError{Field: field + ".id", Message: "required field is empty"}
		}
		if seen[c.ID] {
			return ValidationError{Field: field + ".id", Message: "duplicate chore id " + c.ID}
		}
		seen[c.ID] = true
		if c.Trigger.Type == "" {
			return ValidationError{Field: field + ".trigger.type", Message: "required field is empty"}
		}
	}
	return nil
}

// ValidateServerConfig checks that server config values are valid.
func ValidateServerConfig(cfg *ServerConfig) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	return nil
}
