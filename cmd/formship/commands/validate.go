package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formship/formship/internal/forms"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a form definition file",
	Long: `Validate a form definition file locally, without contacting the server.

Checks answer types, conditional rules, references to other questions,
and circular rule dependencies.

Examples:
  formship validate survey.yaml
  formship validate survey.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := readFormFile(args[0])
		if err != nil {
			return err
		}

		if err := forms.ValidateForm(&f); err != nil {
			return fmt.Errorf("form '%s' is invalid: %w", f.ID, err)
		}

		if !quiet {
			fmt.Printf("Form '%s' is valid (%d question(s))\n", f.ID, len(f.Questions))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
