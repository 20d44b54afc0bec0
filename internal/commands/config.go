package commands

import (
	"fmt"
	"path/filepath"

	"github.com/port-experimental/membership-cli/internal/config"
	"github.com/port-experimental/membership-cli/internal/output"
	"github.com/spf13/cobra"
)

// RegisterConfig registers the config command.
func RegisterConfig(rootCmd *cobra.Command) {
	var show, init, validate bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage membership CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := GetGlobalFlags(cmd.Context())
			configManager := config.NewConfigManager(flags.ConfigFile)

			if init {
				if err := configManager.CreateDefaultConfig(); err != nil {
					return fmt.Errorf("failed to create configuration: %w", err)
				}
				output.SuccessPrintln(fmt.Sprintf("✓ Configuration file created at %s", configManager.ConfigPath()))
				output.Println("\nPlease edit the file and add your API key and site pages.")
				return nil
			}

			if show || validate {
				cfg, err := configManager.LoadWithOverrides(flags.overrides())
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}

				if show {
					printConfig(configManager.ConfigPath(), cfg)
				}
				if validate {
					if err := cfg.Validate(); err != nil {
						return fmt.Errorf("invalid configuration: %w", err)
					}
					output.SuccessPrintln("✓ Configuration is valid")
				}
				return nil
			}

			output.Println("Use --show to display configuration")
			output.Println("Use --init to create a new configuration file")
			output.Println("Use --validate to check the configuration")
			return nil
		},
	}

	configCmd.Flags().BoolVar(&show, "show", false, "Show current configuration")
	configCmd.Flags().BoolVar(&init, "init", false, "Initialize configuration file")
	configCmd.Flags().BoolVar(&validate, "validate", false, "Validate configuration")

	rootCmd.AddCommand(configCmd)
}

func printConfig(path string, cfg *config.Config) {
	output.Println(output.Bold("\nCurrent Configuration:"))
	output.KeyValue("Config file", path)
	output.KeyValue("Default profile", cfg.DefaultProfile)
	output.KeyValue("State dir", filepath.Dir(cfg.TokenStorePath(cfg.DefaultProfile)))
	output.KeyValue("Server", fmt.Sprintf("%s (%.1f/min, burst %d)", cfg.Server.Addr, cfg.Server.SubmissionsPerMinute, cfg.Server.Burst))

	names := cfg.ProfileNames()
	output.Printf("Profiles: %d\n", len(names))
	for _, name := range names {
		p := cfg.Profiles[name]
		output.Printf("  - %s\n", output.Cyan(name))
		output.KeyValue("  API key", config.MaskSecret(p.APIKey))
		output.KeyValue("  API URL", p.APIURL)
		output.KeyValue("  Token URL", fmt.Sprintf("%s %s", p.Method(), p.TokenURL()))
		if p.SiteURL != "" {
			output.KeyValue("  Site URL", p.SiteURL)
		}
		if types, err := p.Types(); err == nil {
			output.KeyValue("  Types", len(types))
		}
	}
}
