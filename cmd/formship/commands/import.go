package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/formship/formship/internal/cli"
	"github.com/formship/formship/internal/client"
)

var (
	importDryRun bool
	importForce  bool
)

// readExportFile loads an export file in YAML or JSON form.
func readExportFile(path string) (ExportFormat, error) {
	var importData ExportFormat

	data, err := os.ReadFile(path)
	if err != nil {
		return importData, fmt.Errorf("failed to read file: %w", err)
	}

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &importData); err != nil {
			return importData, fmt.Errorf("failed to parse file: %w", err)
		}
		return importData, nil
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return importData, fmt.Errorf("failed to parse file: %w", err)
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return importData, fmt.Errorf("failed to convert file: %w", err)
	}
	if err := json.Unmarshal(jsonData, &importData); err != nil {
		return importData, fmt.Errorf("failed to parse file: %w", err)
	}
	return importData, nil
}

// checkSchemaVersion rejects files written by an incompatible CLI version.
func checkSchemaVersion(version string) error {
	if version == "" {
		// Pre-versioning exports are treated as 1.x
		return nil
	}
	fileVer, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid schema_version '%s': %w", version, err)
	}
	supported := semver.MustParse(exportSchemaVersion)
	if fileVer.Major() != supported.Major() {
		return fmt.Errorf("unsupported schema_version '%s' (this CLI supports %d.x)",
			version, supported.Major())
	}
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import forms from a file",
	Long: `Import forms from a YAML or JSON file.

Examples:
  formship import forms.yaml --env prod
  formship import forms.yaml --env staging --dry-run
  formship import forms.yaml --env prod --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		importData, err := readExportFile(filename)
		if err != nil {
			return err
		}

		if err := checkSchemaVersion(importData.SchemaVersion); err != nil {
			return err
		}

		// Validate forms
		if len(importData.Forms) == 0 {
			return fmt.Errorf("no forms found in file")
		}

		if verbose {
			fmt.Printf("Found %d form(s) to import\n", len(importData.Forms))
		}

		// Dry run mode - just validate and show what would be imported
		if importDryRun {
			fmt.Println("Dry run mode - the following forms would be imported:")
			for _, f := range importData.Forms {
				fmt.Printf("  - %s (status: %s, questions: %d, env: %s)\n",
					f.ID, f.Status, len(f.Questions), f.Env)
			}
			return nil
		}

		// Get environment configuration
		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// Create API client
		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
		ctx := context.Background()

		// Import forms
		successCount := 0
		errorCount := 0

		for _, f := range importData.Forms {
			// Use the environment from the form or override with --env flag
			if effectiveEnv != "" {
				f.Env = effectiveEnv
			}

			if verbose {
				fmt.Printf("Importing form: %s\n", f.ID)
			}

			if err := c.CreateForm(ctx, f); err != nil {
				errorCount++
				fmt.Fprintf(os.Stderr, "Failed to import form '%s': %v\n", f.ID, err)
				if !importForce {
					return fmt.Errorf("import failed, use --force to continue on errors")
				}
			} else {
				successCount++
			}
		}

		if !quiet {
			fmt.Printf("Import complete: %d succeeded, %d failed\n", successCount, errorCount)
		}

		if errorCount > 0 && !importForce {
			return fmt.Errorf("import completed with errors")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without importing")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Continue on errors")
}
