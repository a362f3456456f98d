package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/runcmd/internal/config"
)

// NewCompletionCommand creates the completion command for generating shell completions.
func NewCompletionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for runcmd and write it to stdout.

Load it directly for the current session:

  bash:       source <(runcmd completion bash)
  zsh:        source <(runcmd completion zsh)
  fish:       runcmd completion fish | source
  powershell: runcmd completion powershell | Out-String | Invoke-Expression

Or install it for every session, for example on Linux:

  runcmd completion bash > /etc/bash_completion.d/runcmd
  runcmd completion zsh  > "${fpath[1]}/_runcmd"
  runcmd completion fish > ~/.config/fish/completions/runcmd.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
