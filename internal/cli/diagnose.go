package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/fluxgen/internal/diagnose"
	"github.com/vietddude/fluxgen/internal/infra/imageapi"
)

var diagnoseProbe bool

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [message]",
	Short: "Classify a provider error message, or probe the provider with --probe",
	RunE:  runDiagnose,
}

func init() {
	diagnoseCmd.Flags().BoolVar(&diagnoseProbe, "probe", false, "list models at the provider and diagnose any failure")
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	if !diagnoseProbe {
		if len(args) == 0 {
			return errors.New("a message is required unless --probe is set")
		}
		renderDiagnosis(cmd.OutOrStdout(), diagnose.Classify(strings.Join(args, " "), nil))
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client, err := imageapi.New(cfg.Provider.Config)
	if err != nil {
		renderDiagnosis(cmd.OutOrStdout(), diagnose.ClassifyError(err, map[string]any{"operation": "connect"}))
		return errGenerationFailed
	}
	models, err := client.ListModels(cmd.Context())
	if err != nil {
		renderDiagnosis(cmd.OutOrStdout(), diagnose.ClassifyError(err, map[string]any{
			"operation": "list_models",
			"base_url":  client.BaseURL(),
		}))
		return errGenerationFailed
	}
	renderProbe(cmd.OutOrStdout(), client.BaseURL(), models)
	return nil
}
