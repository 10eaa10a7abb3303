package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formship/formship/internal/cli"
	"github.com/formship/formship/internal/client"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a form",
	Long: `Get the full definition of a specific form.

Examples:
  formship get customer_survey --env prod
  formship get customer_survey --env prod --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		// Get environment configuration
		envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// Create API client
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		// Get form
		ctx := context.Background()
		f, err := c.GetForm(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get form: %w", err)
		}

		if !quiet {
			return cli.PrintForm(f, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
