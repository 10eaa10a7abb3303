package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/formship/formship/internal/cli"
	"github.com/formship/formship/internal/client"
	"github.com/formship/formship/internal/forms"
)

var (
	exportOutput string
)

// exportSchemaVersion is stamped into every export; import refuses files
// whose major version differs.
const exportSchemaVersion = "1.0.0"

// ExportFormat represents the structure for exporting forms
type ExportFormat struct {
	SchemaVersion string       `yaml:"schema_version" json:"schema_version"`
	Forms         []forms.Form `yaml:"forms" json:"forms"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export forms to a file",
	Long: `Export all forms from the specified environment to a YAML or JSON file.

Examples:
  formship export --env prod --output forms.yaml
  formship export --env prod --output forms.json --format json
  formship export --env prod > backup.yaml`,
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

		exportData := ExportFormat{SchemaVersion: exportSchemaVersion, Forms: list}

		// Determine output destination
		var output *os.File
		if exportOutput == "" || exportOutput == "-" {
			output = os.Stdout
		} else {
			output, err = os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer output.Close()
		}

		// Export based on format
		switch format {
		case "json":
			encoder := json.NewEncoder(output)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(exportData); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
		case "yaml", "table":
			// Default to YAML for export. Route through JSON so the YAML
			// keys match the wire format.
			jsonData, err := json.Marshal(exportData)
			if err != nil {
				return fmt.Errorf("failed to encode forms: %w", err)
			}
			var raw any
			if err := json.Unmarshal(jsonData, &raw); err != nil {
				return fmt.Errorf("failed to encode forms: %w", err)
			}
			encoder := yaml.NewEncoder(output)
			defer encoder.Close()
			encoder.SetIndent(2)
			if err := encoder.Encode(raw); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
		default:
			return fmt.Errorf("unsupported export format: %s", format)
		}

		if exportOutput != "" && exportOutput != "-" && !quiet {
			fmt.Fprintf(os.Stderr, "Successfully exported %d form(s) to %s\n", len(list), exportOutput)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}
