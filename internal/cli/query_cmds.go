package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/occupancy"
	"github.com/trop-dev/trop/internal/pathutil"
	"github.com/trop-dev/trop/internal/query"
	"github.com/trop-dev/trop/internal/store"
)

// NewListProjectsCommand creates the "list-projects" cobra command
// (spec.md §4.9).
func NewListProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-projects",
		Short: "List the distinct project names in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListProjects()
		},
	}
}

func runListProjects() error {
	s, err := openDefaultStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	projects, err := query.ListProjects(currentContext(), s.DB())
	if err != nil {
		return err
	}

	if outputFormat() == "json" {
		printJSON(projects)
		return nil
	}
	for _, p := range sortStrings(projects) {
		fmt.Println(p)
	}
	return nil
}

// NewPortInfoCommand creates the "port-info" cobra command (spec.md §4.9).
func NewPortInfoCommand() *cobra.Command {
	var includeOccupancy bool
	cmd := &cobra.Command{
		Use:   "port-info <port>",
		Short: "Show whatever reservation, if any, holds a port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortInfo(args[0], includeOccupancy)
		},
	}
	cmd.Flags().BoolVar(&includeOccupancy, "include-occupancy", false, "also probe whether the port is currently bound by some process")
	return cmd
}

func runPortInfo(raw string, includeOccupancy bool) error {
	n, err := parsePortArg(raw)
	if err != nil {
		return err
	}
	port, err := model.NewPort(n)
	if err != nil {
		return model.WrapTropError(model.KindInvalidPort, fmt.Sprintf("port %d", n), err)
	}

	s, err := openDefaultStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	r, err := query.GetByPort(currentContext(), s.DB(), port)
	if err != nil {
		return err
	}

	var occupied *bool
	if includeOccupancy {
		checker := occupancy.NewOSChecker()
		o, err := occupancy.IsOccupied(checker, port, occupancy.AllProbes)
		if err != nil {
			return err
		}
		occupied = &o
	}

	if outputFormat() == "json" {
		out := map[string]interface{}{"port": port.Int(), "reserved": r != nil}
		if r != nil {
			out["reservation"] = toReservationRow(*r)
		}
		if occupied != nil {
			out["occupied"] = *occupied
		}
		printJSON(out)
		return nil
	}

	if r == nil {
		fmt.Printf("%d is not reserved\n", port.Int())
	} else {
		fmt.Printf("%d  %s", port.Int(), r.Key.Path)
		if tag := r.Key.TagOrEmpty(); tag != "" {
			fmt.Printf("  tag=%s", tag)
		}
		if r.Project != nil {
			fmt.Printf("  project=%s", *r.Project)
		}
		if r.Task != nil {
			fmt.Printf("  task=%s", *r.Task)
		}
		fmt.Println()
	}
	if occupied != nil {
		fmt.Printf("occupied: %t\n", *occupied)
	}
	return nil
}

// NewShowPathCommand creates the "show-path" cobra command: reports the
// reservation (if any) at the normalized current directory, following the
// same identity rules reserve/release use.
func NewShowPathCommand() *cobra.Command {
	var path string
	var canonicalize bool
	cmd := &cobra.Command{
		Use:   "show-path",
		Short: "Show the reservation, if any, at a path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowPath(path, canonicalize)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "path to inspect (default: current directory)")
	cmd.Flags().BoolVar(&canonicalize, "canonicalize", false, "resolve symlinks before looking up the reservation")
	return cmd
}

func runShowPath(path string, canonicalize bool) error {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return model.WrapTropError(model.KindInternal, "resolving current directory", err)
		}
		path = cwd
	}
	var path2 string
	var err error
	if canonicalize {
		path2, err = pathutil.Canonicalize(path)
	} else {
		path2, err = pathutil.Normalize(path)
	}
	if err != nil {
		return err
	}
	path = path2

	s, err := openDefaultStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	key, err := model.NewReservationKey(path, nil)
	if err != nil {
		return err
	}
	r, err := query.Get(currentContext(), s.DB(), key)
	if err != nil {
		return err
	}

	if outputFormat() == "json" {
		if r == nil {
			printJSON(map[string]interface{}{"path": path, "reserved": false})
			return nil
		}
		printJSON(toReservationRow(*r))
		return nil
	}

	if r == nil {
		fmt.Printf("%s is not reserved\n", path)
		return nil
	}
	fmt.Println(r.Port.Int())
	return nil
}

// NewShowDataDirCommand creates the "show-data-dir" cobra command: prints
// the resolved data directory without touching the store.
func NewShowDataDirCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show-data-dir",
		Short: "Print the resolved trop data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := resolveDataDir()
			if err != nil {
				return err
			}
			fmt.Println(dataDir)
			return nil
		},
	}
}

type scanFlags struct {
	min         int
	max         int
	progress    bool
	autoexclude bool
	autocompact bool
	format      string
}

// NewScanCommand creates the "scan" cobra command (spec.md §4.9): reports
// reserved/occupied/free for every port in a range.
func NewScanCommand() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report reserved, occupied, and free ports in a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(flags)
		},
	}

	cmd.Flags().IntVar(&flags.min, "min", 0, "range start (default: configured port_range.min)")
	cmd.Flags().IntVar(&flags.max, "max", 0, "range end (default: configured port_range.max)")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "show a progress bar while probing a wide range")
	cmd.Flags().BoolVar(&flags.autoexclude, "autoexclude", false, "add every occupied-but-unreserved port found to the project's excluded_ports")
	cmd.Flags().BoolVar(&flags.autocompact, "autocompact", false, "compact excluded_ports after an autoexclude")
	cmd.Flags().StringVar(&flags.format, "format", "table", "output format: table|json|csv|tsv")

	return cmd
}

func runScan(flags *scanFlags) error {
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
	s, err := openStore(dataDir, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	rangeMin, rangeMax := cfg.PortRange.Min.Int(), cfg.PortRange.Max.Int()
	if flags.min > 0 {
		rangeMin = flags.min
	}
	if flags.max > 0 {
		rangeMax = flags.max
	}
	r, err := model.NewPortRange(rangeMin, rangeMax)
	if err != nil {
		return model.WrapTropError(model.KindInvalidPort, "scan range", err)
	}

	var bar *progressbar.ProgressBar
	if flags.progress && r.Size() > 256 {
		bar = progressbar.Default(int64(r.Size()), "scanning")
	}

	checker := occupancy.NewOSChecker()
	entries, err := query.Scan(currentContext(), s.DB(), checker, cfg.Occupancy, r)
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Add(len(entries))
		_ = bar.Finish()
	}

	if flags.autoexclude {
		if err := autoexcludeOccupied(entries, cwd, flags.autocompact); err != nil {
			return err
		}
	}

	printScanResult(entries, flags.format)
	return nil
}

// autoexcludeOccupied adds an exclusion for each occupied-but-unreserved
// port scan found to the project config, optionally compacting the
// resulting excluded_ports afterward.
func autoexcludeOccupied(entries []query.ScanEntry, cwd string, compact bool) error {
	path := filepath.Join(cwd, "trop.yaml")
	for _, e := range entries {
		if e.Status != query.Occupied {
			continue
		}
		excl := model.NewSingleExclusion(e.Port)
		if err := config.AddExclusion(path, excl); err != nil {
			return err
		}
		Log.Infof("autoexcluded %d", e.Port.Int())
	}
	if compact {
		if _, err := config.CompactExclusions(path, false); err != nil {
			return err
		}
	}
	return nil
}

type scanRow struct {
	Port   int    `json:"port"`
	Status string `json:"status"`
}

func printScanResult(entries []query.ScanEntry, format string) {
	rows := make([]scanRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, scanRow{Port: e.Port.Int(), Status: string(e.Status)})
	}

	switch format {
	case "json":
		printJSON(rows)
	case "csv":
		printScanDelimited(rows, ",")
	case "tsv":
		printScanDelimited(rows, "\t")
	default:
		for _, row := range rows {
			if row.Status == string(query.Free) {
				continue
			}
			fmt.Printf("%-6d %s\n", row.Port, row.Status)
		}
	}
}

func printScanDelimited(rows []scanRow, sep string) {
	printRow(sep, "port", "status")
	for _, row := range rows {
		printRow(sep, strconv.Itoa(row.Port), row.Status)
	}
}

// openDefaultStore opens the store at the resolved data directory, with
// config resolved from the current directory only to pick up the lock wait
// and autoinit settings, for commands that need nothing else from config
// (list-projects, port-info, show-path, the assert-* commands).
func openDefaultStore() (*store.Store, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapTropError(model.KindInternal, "resolving current directory", err)
	}
	cfg, err := loadConfig(dataDir, cwd)
	if err != nil {
		return nil, err
	}
	return openStore(dataDir, cfg)
}

func parsePortArg(raw string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return 0, model.NewTropError(model.KindInvalidPort, fmt.Sprintf("%q is not a valid port number", raw))
	}
	return n, nil
}
