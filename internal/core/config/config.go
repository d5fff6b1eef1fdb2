package config

import (
	"time"

	"github.com/vietddude/fluxgen/internal/infra/imageapi"
	redisclient "github.com/vietddude/fluxgen/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Provider ProviderConfig     `yaml:"provider"`
	Dispatch DispatchConfig     `yaml:"dispatch"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          int           `yaml:"port"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

// ProviderConfig holds the default provider used by new sessions. Sessions
// may override the key and base URL.
type ProviderConfig struct {
	imageapi.Config `yaml:",inline"`
	Model           string `yaml:"model"`
}

// DispatchConfig holds the retry policy.
type DispatchConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	FallbackModels []string      `yaml:"fallback_models"`
	HistoryLimit   int           `yaml:"history_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
