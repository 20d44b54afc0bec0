package commands

import (
	"fmt"

	"github.com/port-experimental/membership-cli/internal/output"
	"gopkg.in/yaml.v3"
)

// formatOutput writes data as json or yaml. Any other format is rejected so
// callers can fall back to their own text rendering.
func formatOutput(data interface{}, format string) error {
	switch format {
	case "json":
		return output.PrintJSON(data)
	case "yaml":
		encoder := yaml.NewEncoder(output.Writer())
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(data)
	default:
		return fmt.Errorf("unsupported output format %q (expected text, json or yaml)", format)
	}
}

func validateFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unsupported output format %q (expected text, json or yaml)", format)
}
