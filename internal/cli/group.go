package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/occupancy"
	"github.com/trop-dev/trop/internal/pathutil"
	"github.com/trop-dev/trop/internal/planner"
	"github.com/trop-dev/trop/internal/store"
)

type groupFlags struct {
	task   string
	format string
	shell  string
}

// NewReserveGroupCommand creates the "reserve-group" cobra command
// (spec.md §4.6 group allocation + §4.8, output formats at §6).
func NewReserveGroupCommand() *cobra.Command {
	flags := &groupFlags{}

	cmd := &cobra.Command{
		Use:   "reserve-group [path]",
		Short: "Reserve every service in the project's group template at once",
		Long: `reserve-group allocates a port for every service declared under the
project config's "reservations" template (base + the service's offset, or
the service's preferred port), binding them all-or-nothing under one group
id. path defaults to the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runGroup(path, flags)
		},
	}

	cmd.Flags().StringVar(&flags.task, "task", "", "sticky task label applied to every reservation in the group")
	cmd.Flags().StringVar(&flags.format, "format", "human", "output format: export|json|dotenv|human")
	cmd.Flags().StringVar(&flags.shell, "shell", "", "shell dialect for --format export (default: detected from $SHELL)")

	return cmd
}

func runGroup(path string, flags *groupFlags) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapTropError(model.KindInternal, "resolving current directory", err)
	}
	if path == "" {
		path = cwd
	}
	path, err = pathutil.Normalize(path)
	if err != nil {
		return err
	}
	normalizedCWD, err := pathutil.Normalize(cwd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(dataDir, cwd)
	if err != nil {
		return err
	}
	s, err := openStore(dataDir, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var task *string
	if flags.task != "" {
		task = &flags.task
	}
	in := planner.GroupInput{Path: path, CWD: normalizedCWD, Task: task}
	if cfg.Project != "" {
		in.Project = &cfg.Project
	}

	checker := occupancy.NewOSChecker()
	ctx := currentContext()
	moment := now()

	var plan planner.Plan
	err = s.WriteTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var buildErr error
		plan, buildErr = planner.BuildGroupPlan(ctx, tx, cfg, checker, in, moment)
		if buildErr != nil {
			return buildErr
		}
		return planner.Execute(ctx, tx, plan, moment)
	})
	if err != nil {
		return err
	}

	ports, err := groupPortsAfter(ctx, s, path, cfg)
	if err != nil {
		return err
	}
	printGroupResult(ports, cfg, flags.format, flags.shell)
	return nil
}

// groupPortsAfter re-reads the committed reservations at path for every
// service tag named in the project's group template, returning tag→port.
func groupPortsAfter(ctx context.Context, s *store.Store, path string, cfg config.Config) (map[string]model.Port, error) {
	ports := make(map[string]model.Port, len(cfg.Reservations.Services))
	for _, svc := range cfg.Reservations.Services {
		tag := svc.Tag
		key, err := model.NewReservationKey(path, &tag)
		if err != nil {
			return nil, err
		}
		r, err := store.GetByKey(ctx, s.DB(), key)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, model.NewTropError(model.KindInternal, fmt.Sprintf("reservation for service %q vanished immediately after commit", svc.Tag))
		}
		ports[svc.Tag] = r.Port
	}
	return ports, nil
}

// printGroupResult renders a completed group allocation in one of the
// four formats spec.md §6 defines for reserve-group/autoreserve.
func printGroupResult(ports map[string]model.Port, cfg config.Config, format, shell string) {
	switch format {
	case "json":
		out := make(map[string]int, len(ports))
		for tag, p := range ports {
			out[tag] = p.Int()
		}
		printJSON(out)
	case "dotenv":
		for _, svc := range cfg.Reservations.Services {
			if svc.Env == "" {
				continue
			}
			fmt.Printf("%s=%d\n", svc.Env, ports[svc.Tag].Int())
		}
	case "export":
		dialect := detectShell(shell)
		for _, svc := range cfg.Reservations.Services {
			if svc.Env == "" {
				continue
			}
			printExportLine(dialect, svc.Env, ports[svc.Tag].Int())
		}
	default:
		tags := make([]string, 0, len(ports))
		for tag := range ports {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			fmt.Fprintf(os.Stderr, "%-20s %d\n", tag, ports[tag].Int())
		}
	}
}

// detectShell picks the export dialect from an explicit override or the
// usual shell-detection environment variables.
func detectShell(override string) string {
	if override != "" {
		return override
	}
	if os.Getenv("FISH_VERSION") != "" {
		return "fish"
	}
	if os.Getenv("ZSH_VERSION") != "" {
		return "zsh"
	}
	if strings.Contains(os.Getenv("SHELL"), "fish") {
		return "fish"
	}
	if runtimeIsPowerShell() {
		return "powershell"
	}
	return "bash"
}

func runtimeIsPowerShell() bool {
	return os.Getenv("PSModulePath") != ""
}

func printExportLine(dialect, name string, port int) {
	switch dialect {
	case "fish":
		fmt.Printf("set -x %s %d\n", name, port)
	case "powershell":
		fmt.Printf("$env:%s=\"%d\"\n", name, port)
	default:
		fmt.Printf("export %s=%d\n", name, port)
	}
}
