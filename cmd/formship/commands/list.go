package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formship/formship/internal/cli"
	"github.com/formship/formship/internal/client"
	"github.com/formship/formship/internal/forms"
)

var (
	listStatus string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all forms",
	Long: `List all forms in the specified environment.

Examples:
  formship list --env prod
  formship list --env prod --format json
  formship list --env prod --status published`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get environment configuration
		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// Create API client
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		// List forms
		ctx := context.Background()
		list, err := c.ListForms(ctx, effectiveEnv)
		if err != nil {
			return fmt.Errorf("failed to list forms: %w", err)
		}

		// Filter by status if requested
		if listStatus != "" {
			var filtered []forms.Form
			for _, f := range list {
				if f.Status == listStatus {
					filtered = append(filtered, f)
				}
			}
			list = filtered
		}

		if !quiet {
			if len(list) == 0 {
				fmt.Println("No forms found")
				return nil
			}
			return cli.PrintForms(list, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (draft, published, closed)")
}
