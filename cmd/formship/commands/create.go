package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/formship/formship/internal/cli"
	"github.com/formship/formship/internal/client"
	"github.com/formship/formship/internal/forms"
)

var (
	createFile string
)

// readFormFile loads a single form definition from a YAML or JSON file.
// YAML input is routed through JSON so the field names match the wire format.
func readFormFile(path string) (forms.Form, error) {
	var f forms.Form

	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("failed to read file: %w", err)
	}

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &f); err != nil {
			return f, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return f, nil
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return f, fmt.Errorf("failed to parse YAML: %w", err)
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return f, fmt.Errorf("failed to convert YAML: %w", err)
	}
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return f, fmt.Errorf("failed to parse form: %w", err)
	}
	return f, nil
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new form",
	Long: `Create a new form from a YAML or JSON definition file.

Examples:
  formship create --file survey.yaml --env prod
  formship create --file survey.json --env staging`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get environment configuration
		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		f, err := readFormFile(createFile)
		if err != nil {
			return err
		}
		if f.ID == "" {
			return fmt.Errorf("form definition is missing an id")
		}
		if effectiveEnv != "" {
			f.Env = effectiveEnv
		}

		// Create API client
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		// Create form
		ctx := context.Background()
		if err := c.CreateForm(ctx, f); err != nil {
			return fmt.Errorf("failed to create form: %w", err)
		}

		if !quiet {
			fmt.Printf("Successfully created form '%s' in environment '%s'\n", f.ID, f.Env)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "Form definition file (YAML or JSON)")
	createCmd.MarkFlagRequired("file")
}
