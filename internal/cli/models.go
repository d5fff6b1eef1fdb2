package cli

import (
	"github.com/spf13/cobra"

	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/infra/imageapi"
)

var modelsRemote bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List built-in models, or the provider's models with --remote",
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsRemote, "remote", false, "list the models the provider exposes")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	if !modelsRemote {
		renderModels(cmd.OutOrStdout(), domain.Catalog)
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := imageapi.New(cfg.Provider.Config)
	if err != nil {
		return err
	}
	ids, err := client.ListModels(cmd.Context())
	if err != nil {
		return err
	}
	renderProbe(cmd.OutOrStdout(), client.BaseURL(), ids)
	return nil
}
