package commands

import (
	"github.com/port-experimental/membership-cli/internal/config"
	"github.com/port-experimental/membership-cli/internal/output"
	"github.com/spf13/cobra"
)

// RegisterTypes registers the types command.
func RegisterTypes(rootCmd *cobra.Command) {
	var format string

	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "List the configured membership types",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			cfg, _, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			profile, err := cfg.GetProfile("")
			if err != nil {
				return err
			}
			types, err := profile.Types()
			if err != nil {
				return err
			}

			if format != "text" {
				if types == nil {
					types = config.MembershipTypes{}
				}
				return formatOutput(types, format)
			}

			if len(types) == 0 {
				output.WarningPrintln("No membership types configured for profile '" + profile.Name + "'; any label is sent as-is.")
				return nil
			}
			rows := make([][]string, 0, len(types))
			for _, mt := range types {
				rows = append(rows, []string{mt.Label, mt.RemoteID})
			}
			output.Table([]string{"Label", "Remote ID"}, rows)
			return nil
		},
	}

	typesCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(typesCmd)
}
