package commands

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/port-experimental/membership-cli/internal/output"
	"github.com/port-experimental/membership-cli/internal/update"
	"github.com/spf13/cobra"
)

// BuildInfo holds build-time information
type BuildInfo struct {
	Version   string
	BuildDate string
	Commit    string
	GoVersion string
	Platform  string
}

var buildInfo = BuildInfo{
	Version:   "dev",
	BuildDate: "unknown",
	Commit:    "unknown",
	GoVersion: runtime.Version(),
	Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
}

// SetBuildInfo sets build information (called from main.go)
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// RegisterVersion registers the version command.
func RegisterVersion(rootCmd *cobra.Command) {
	var check bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show the CLI version",
		RunE: func(cmd *cobra.Command, args []string) error {
			output.Printf("membership CLI version %s\n", buildInfo.Version)
			output.Printf("Build date: %s\n", buildInfo.BuildDate)
			output.Printf("Git commit: %s\n", buildInfo.Commit)
			output.Printf("Go version: %s\n", buildInfo.GoVersion)
			output.Printf("Platform: %s\n", buildInfo.Platform)

			if !check {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			result, err := update.NewChecker("").CheckLatestVersion(ctx, buildInfo.Version)
			if err != nil {
				return fmt.Errorf("failed to check for updates: %w", err)
			}
			if result.UpdateAvailable {
				output.WarningPrintln(fmt.Sprintf("\nA newer version is available: %s", result.LatestVersion))
				if result.DownloadURL != "" {
					output.Printf("Download: %s\n", result.DownloadURL)
				}
			} else {
				output.SuccessPrintln("\n✓ You are running the latest version")
			}
			return nil
		},
	}

	versionCmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")
	rootCmd.AddCommand(versionCmd)
}
