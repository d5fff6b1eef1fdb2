package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/dispatch"
	"github.com/vietddude/fluxgen/internal/infra/imageapi"
)

// Load reads configuration from a YAML file. An empty path yields the
// defaults with environment overrides applied.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills unset provider credentials from the environment.
func applyEnv(cfg *AppConfig) {
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("FLUXGEN_API_KEY")
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = os.Getenv("FLUXGEN_BASE_URL")
	}
	if cfg.Server.SessionSecret == "" {
		cfg.Server.SessionSecret = os.Getenv("FLUXGEN_SESSION_SECRET")
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = 24 * time.Hour
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = imageapi.DefaultBaseURL
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 120 * time.Second
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = string(domain.ModelFluxSchnell)
	}

	def := dispatch.DefaultConfig()
	if cfg.Dispatch.MaxAttempts == 0 {
		cfg.Dispatch.MaxAttempts = def.MaxAttempts
	}
	if cfg.Dispatch.BaseDelay == 0 {
		cfg.Dispatch.BaseDelay = def.BaseDelay
	}
	if len(cfg.Dispatch.FallbackModels) == 0 {
		cfg.Dispatch.FallbackModels = def.FallbackModels
	}
	if cfg.Dispatch.HistoryLimit == 0 {
		cfg.Dispatch.HistoryLimit = def.HistoryLimit
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate rejects settings the dispatcher cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.SessionTTL < 0 {
		errs = append(errs, errors.New("server.session_ttl must not be negative"))
	}
	if c.Dispatch.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("dispatch.max_attempts must be >= 1, got %d", c.Dispatch.MaxAttempts))
	}
	if c.Dispatch.BaseDelay < 0 {
		errs = append(errs, errors.New("dispatch.base_delay must not be negative"))
	}
	if c.Dispatch.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("dispatch.history_limit must be >= 1, got %d", c.Dispatch.HistoryLimit))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DispatchSettings converts the dispatch section for dispatch.New.
func (c *AppConfig) DispatchSettings() dispatch.Config {
	return dispatch.Config{
		MaxAttempts:    c.Dispatch.MaxAttempts,
		BaseDelay:      c.Dispatch.BaseDelay,
		FallbackModels: append([]string(nil), c.Dispatch.FallbackModels...),
		HistoryLimit:   c.Dispatch.HistoryLimit,
	}
}
