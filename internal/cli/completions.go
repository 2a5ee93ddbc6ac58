package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/model"
)

// NewCompletionsCommand creates the "completions" cobra command, thinly
// wrapping cobra's built-in shell completion generators.
func NewCompletionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "completions <bash|zsh|fish|powershell>",
		Short:     "Generate a shell completion script",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(os.Stdout)
			case "zsh":
				return root.GenZshCompletion(os.Stdout)
			case "fish":
				return root.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return model.NewTropError(model.KindValidation, "unsupported shell: "+args[0])
			}
		},
	}
}
