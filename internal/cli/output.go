package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/formship/formship/internal/forms"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintForms outputs forms in the specified format
func PrintForms(list []forms.Form, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(list)
	case FormatYAML:
		return printYAML(list)
	case FormatTable:
		return printTable(list)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintForm outputs a single form in the specified format
func PrintForm(f *forms.Form, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(f)
	case FormatYAML:
		return printYAML(f)
	case FormatTable:
		return printTable([]forms.Form{*f})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	// Wrap slices of forms.Form in a "forms" key for consistency with documentation
	if list, ok := data.([]forms.Form); ok {
		return encoder.Encode(map[string][]forms.Form{"forms": list})
	}
	return encoder.Encode(data)
}

func printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTable(list []forms.Form) error {
	table := tablewriter.NewWriter(os.Stdout)

	// Set headers
	table.Header("ID", "Title", "Status", "Env", "Questions", "Conditional", "Updated At")

	// Add rows
	for _, f := range list {
		title := f.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}

		conditional := 0
		for _, q := range f.Questions {
			if q.Conditional.Enabled {
				conditional++
			}
		}

		table.Append(
			f.ID,
			title,
			f.Status,
			f.Env,
			fmt.Sprintf("%d", len(f.Questions)),
			fmt.Sprintf("%d", conditional),
			f.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}

	return table.Render()
}
