package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formship/formship/internal/cli"
	"github.com/formship/formship/internal/client"
)

var publishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish a form",
	Long: `Publish a form, making it available to respondents.

Examples:
  formship publish customer_survey --env prod`,
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

		// Publish form
		ctx := context.Background()
		if err := c.PublishForm(ctx, id); err != nil {
			return fmt.Errorf("failed to publish form: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully published form '%s'\n", id)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
