package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RegisterCompletion registers the completion command.
func RegisterCompletion(rootCmd *cobra.Command) {
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for the membership command.

To load completions in your current shell session:
  bash: source <(membership completion bash)
  zsh:  source <(membership completion zsh)
  fish: membership completion fish | source

To load completions for all new shells:
  bash: membership completion bash > /etc/bash_completion.d/membership
  zsh:  membership completion zsh > "${fpath[1]}/_membership"
  fish: membership completion fish > ~/.config/fish/completions/membership.fish`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletionV2(out, true)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}

	rootCmd.AddCommand(completionCmd)
}
