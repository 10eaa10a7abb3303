package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formship/formship/internal/cli"
	"github.com/formship/formship/internal/client"
)

var (
	updateFile string
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an existing form",
	Long: `Update an existing form from a YAML or JSON definition file.

Examples:
  formship update customer_survey --file survey.yaml --env prod
  formship update customer_survey --file survey.json --env staging`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		// Get environment configuration
		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		f, err := readFormFile(updateFile)
		if err != nil {
			return err
		}
		if f.ID == "" {
			f.ID = id
		} else if f.ID != id {
			return fmt.Errorf("form id '%s' in file does not match argument '%s'", f.ID, id)
		}
		if effectiveEnv != "" {
			f.Env = effectiveEnv
		}

		// Create API client
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		// Update form
		ctx := context.Background()
		if err := c.UpdateForm(ctx, f); err != nil {
			return fmt.Errorf("failed to update form: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully updated form '%s' in environment '%s'\n", f.ID, f.Env)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVarP(&updateFile, "file", "f", "", "Form definition file (YAML or JSON)")
	updateCmd.MarkFlagRequired("file")
}
