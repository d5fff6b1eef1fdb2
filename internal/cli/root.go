package cli

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/fluxgen/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "fluxgen",
	Short: "Resilient image generation service",
	Long: `fluxgen sends image generation requests to an OpenAI-compatible provider,
retrying with backoff and model fallback, and explains failures it cannot recover from.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig loads .env and the config file, then sets up logging. A
// missing default config file falls back to built-in defaults.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	_ = godotenv.Load()

	path := cfgPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		return nil, err
	}

	setupLogging(cfg.Logging, isDebug, os.Stderr)
	return cfg, nil
}

// setupLogging installs the default logger: tint for text, slog's JSON
// handler for json.
func setupLogging(cfg config.LoggingConfig, debug bool, w io.Writer) {
	level := logLevel(cfg.Level, debug)
	if strings.EqualFold(cfg.Format, "json") {
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
		return
	}
	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

func logLevel(level string, debug bool) slog.Level {
	switch {
	case debug || strings.EqualFold(level, "debug"):
		return slog.LevelDebug
	case strings.EqualFold(level, "warn"):
		return slog.LevelWarn
	case strings.EqualFold(level, "error"):
		return slog.LevelError
	}
	return slog.LevelInfo
}
