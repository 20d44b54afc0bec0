package commands

import (
	"fmt"
	"time"

	"github.com/port-experimental/membership-cli/internal/api"
	"github.com/port-experimental/membership-cli/internal/output"
	"github.com/spf13/cobra"
)

// tokenView is the printable token status. The token itself is never shown.
type tokenView struct {
	Profile   string     `json:"profile" yaml:"profile"`
	StateFile string     `json:"state_file" yaml:"state_file"`
	Cached    bool       `json:"cached" yaml:"cached"`
	Valid     bool       `json:"valid" yaml:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Subject   string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	Issuer    string     `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	RemoteExp *time.Time `json:"remote_expires_at,omitempty" yaml:"remote_expires_at,omitempty"`
}

// RegisterToken registers the token command and its subcommands.
func RegisterToken(rootCmd *cobra.Command) {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and manage the cached bearer token",
	}

	tokenCmd.AddCommand(registerTokenStatus())
	tokenCmd.AddCommand(registerTokenRefresh())
	tokenCmd.AddCommand(registerTokenClear())

	rootCmd.AddCommand(tokenCmd)
}

func registerTokenStatus() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the cached token's expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			sess, err := newSession(cmd.Context(), "warn")
			if err != nil {
				return err
			}
			defer sess.Close()

			status := sess.tokens.Status(cmd.Context())
			view := tokenView{
				Profile:   sess.profile.Name,
				StateFile: sess.store.Path(),
				Cached:    status.Token != "",
				Valid:     status.Valid,
			}
			if !status.ExpiresAt.IsZero() {
				exp := status.ExpiresAt.Local()
				view.ExpiresAt = &exp
			}
			if status.Token != "" {
				if claims, err := api.InspectToken(status.Token); err == nil {
					view.Subject = claims.Subject
					view.Issuer = claims.Issuer
					if !claims.ExpiresAt.IsZero() {
						exp := claims.ExpiresAt.Local()
						view.RemoteExp = &exp
					}
				}
			}

			if format != "text" {
				return formatOutput(view, format)
			}

			output.KeyValue("Profile", view.Profile)
			output.KeyValue("State file", view.StateFile)
			switch {
			case !view.Cached:
				output.KeyValue("Token", output.Dim("none cached"))
			case view.Valid:
				output.KeyValue("Token", output.Success("valid"))
			default:
				output.KeyValue("Token", output.Warning("expired"))
			}
			if view.ExpiresAt != nil {
				output.KeyValue("Expires", fmt.Sprintf("%s (%s)", view.ExpiresAt.Format(time.RFC3339), humanizeUntil(*view.ExpiresAt)))
			}
			if view.Subject != "" {
				output.KeyValue("Subject", view.Subject)
			}
			if view.RemoteExp != nil {
				output.KeyValue("Remote expiry", view.RemoteExp.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	return cmd
}

func registerTokenRefresh() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch a new token from the token endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context(), "warn")
			if err != nil {
				return err
			}
			defer sess.Close()

			if _, err := sess.tokens.Refresh(cmd.Context(), false); err != nil {
				return fmt.Errorf("failed to refresh token: %w", err)
			}
			status := sess.tokens.Status(cmd.Context())
			output.SuccessPrintln(fmt.Sprintf("✓ Token refreshed, valid until %s", status.ExpiresAt.Local().Format(time.RFC3339)))
			return nil
		},
	}
}

func registerTokenClear() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the cached token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context(), "warn")
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.tokens.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear token: %w", err)
			}
			output.SuccessPrintln("✓ Cached token removed")
			return nil
		},
	}
}

func humanizeUntil(t time.Time) string {
	d := time.Until(t).Round(time.Second)
	if d <= 0 {
		return "expired " + (-d).String() + " ago"
	}
	return "in " + d.String()
}
