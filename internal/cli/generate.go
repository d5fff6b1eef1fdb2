package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/dispatch"
	"github.com/vietddude/fluxgen/internal/infra/imageapi"
)

var errGenerationFailed = errors.New("generation failed")

var generateFlags struct {
	model string
	count int
	size  string
	style string
}

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate images once, with retries and fallback",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&generateFlags.model, "model", "m", "", "model id (default from config)")
	f.IntVarP(&generateFlags.count, "n", "n", 1, "number of images")
	f.StringVarP(&generateFlags.size, "size", "s", domain.DefaultSize, "image size")
	f.StringVar(&generateFlags.style, "style", "", "style hint for custom models")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// A nil generator is fine: the dispatcher reports client_not_ready.
	var gen dispatch.Generator
	client, err := imageapi.New(cfg.Provider.Config)
	switch {
	case errors.Is(err, domain.ErrClientNotReady):
	case err != nil:
		return err
	default:
		gen = client
	}

	req := domain.GenerationRequest{
		Model:  generateFlags.model,
		Prompt: strings.Join(args, " "),
		Count:  generateFlags.count,
		Size:   generateFlags.size,
	}
	if req.Model == "" {
		req.Model = cfg.Provider.Model
	}
	if generateFlags.style != "" {
		req.Extra = map[string]any{"style": generateFlags.style}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d := dispatch.New(gen, cfg.DispatchSettings(), dispatch.WithLogger(slog.Default()))
	outcome := d.Dispatch(ctx, req)

	renderOutcome(cmd.OutOrStdout(), outcome)
	if _, ok := outcome.(*domain.Failure); ok {
		return errGenerationFailed
	}
	return nil
}
