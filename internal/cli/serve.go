package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fluxgen/internal/control"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default command)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	app, err := control.NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize fluxgen", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("fluxgen started",
		"config", cfgPath,
		"port", cfg.Server.Port,
		"provider", cfg.Provider.BaseURL,
		"model", cfg.Provider.Model,
	)

	if err := app.Run(ctx, 15*time.Second); err != nil {
		slog.Error("Error during shutdown", "error", err)
		return err
	}
	slog.Info("fluxgen stopped gracefully")
	return nil
}
