package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/model"
)

type autoreserveFlags struct {
	task    string
	project string
	format  string
	shell   string
}

// NewAutoreserveCommand creates the "autoreserve" cobra command: it
// discovers the effective project configuration for the current directory
// (spec.md §4.3) and either runs a whole-template group reservation, if
// the project declares a "reservations" block, or a single reservation
// otherwise — the same discovery-then-allocate flow a project's own
// tooling would hand-roll around "reserve"/"reserve-group".
func NewAutoreserveCommand() *cobra.Command {
	flags := &autoreserveFlags{}

	cmd := &cobra.Command{
		Use:   "autoreserve",
		Short: "Reserve whatever the discovered project config describes",
		Long: `autoreserve resolves the project configuration for the current
directory and reserves accordingly: the declared service group if
"reservations" is configured, otherwise a single port for the directory
itself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutoreserve(flags)
		},
	}

	cmd.Flags().StringVar(&flags.task, "task", "", "sticky task label")
	cmd.Flags().StringVar(&flags.project, "project", "", "sticky project label (single-reservation fallback only)")
	cmd.Flags().StringVar(&flags.format, "format", "human", "group output format: export|json|dotenv|human")
	cmd.Flags().StringVar(&flags.shell, "shell", "", "shell dialect for --format export")

	return cmd
}

func runAutoreserve(flags *autoreserveFlags) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapTropError(model.KindInternal, "resolving current directory", err)
	}

	cfg, err := loadConfig(dataDir, cwd)
	if err != nil {
		return err
	}

	task := firstNonEmpty(flags.task, os.Getenv("TROP_TASK"))
	project := firstNonEmpty(flags.project, os.Getenv("TROP_PROJECT"))

	if cfg.Reservations != nil && len(cfg.Reservations.Services) > 0 {
		VerboseLog("discovered a reservations template, reserving the group")
		return runGroup("", &groupFlags{task: task, format: flags.format, shell: flags.shell})
	}

	VerboseLog("no reservations template found, reserving a single port for the directory")
	return runReserve(&reserveFlags{project: project, task: task})
}
