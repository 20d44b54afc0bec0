package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/port-experimental/membership-cli/internal/commands"
	"github.com/port-experimental/membership-cli/internal/output"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildDate = "unknown"
	commit    = "unknown"
)

func init() {
	// Fill in VCS details when built without ldflags
	if info, ok := debug.ReadBuildInfo(); ok && version == "dev" {
		for _, setting := range info.Settings {
			switch {
			case setting.Key == "vcs.revision" && commit == "unknown":
				commit = setting.Value
				if len(commit) > 7 {
					commit = commit[:7]
				}
			case setting.Key == "vcs.time" && buildDate == "unknown":
				buildDate = setting.Value
			}
		}
	}

	commands.SetBuildInfo(commands.BuildInfo{
		Version:   version,
		BuildDate: buildDate,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "membership",
		Short: "Submit membership applications to the membership API",
		Long: `membership - submit membership applications to the membership API

Creates a contact record and a member application for each applicant,
managing the short-lived bearer token the API requires.

Credentials can be provided via:
  1. CLI flags (--api-key, --api-url) - highest priority
  2. Environment variables (MEMBERSHIP_API_KEY, MEMBERSHIP_API_URL)
  3. Configuration file (~/.membership/config.yaml)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	var flags commands.GlobalFlags

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", "", "Path to configuration file")
	pf.StringVarP(&flags.Profile, "profile", "p", "", "Configuration profile (uses default_profile if not specified)")
	pf.StringVar(&flags.APIKey, "api-key", "", "Membership API key (overrides config/env)")
	pf.StringVar(&flags.APIURL, "api-url", "", "Membership API base URL (overrides config/env)")
	pf.StringVar(&flags.TokenMethod, "token-method", "", "HTTP method for the token endpoint: GET or POST")
	pf.StringVar(&flags.SiteURL, "site-url", "", "Site URL used for success and error pages")
	pf.StringVar(&flags.StateDir, "state-dir", "", "Directory for the cached token")
	pf.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", "", "Log format: text, json")
	pf.StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	pf.BoolVar(&flags.NoColor, "no-color", false, "Disable color output")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-error output")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose output")

	// Store global flags in context and initialize color output
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.Init(flags.NoColor)

		switch {
		case flags.Quiet:
			output.SetVerbosity(output.QuietLevel)
		case flags.Verbose:
			output.SetVerbosity(output.VerboseLevel)
		default:
			output.SetVerbosity(output.NormalLevel)
		}

		cmd.SetContext(commands.WithGlobalFlags(cmd.Context(), flags))
	}

	// Add subcommands
	commands.RegisterApply(rootCmd)
	commands.RegisterServe(rootCmd)
	commands.RegisterToken(rootCmd)
	commands.RegisterTypes(rootCmd)
	commands.RegisterVersion(rootCmd)
	commands.RegisterConfig(rootCmd)
	commands.RegisterCompletion(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		// Initialize output in case PreRun didn't execute
		if !flags.Quiet {
			output.SetVerbosity(output.NormalLevel)
		}
		output.Init(flags.NoColor)
		output.ErrorPrintf("%s\n", output.FormatError(err))
		os.Exit(1)
	}
}
