package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/query"
	"github.com/trop-dev/trop/internal/store"
)

type listFlags struct {
	format        string
	filterProject string
	filterTag     string
	filterPath    string
	showFullPaths bool
}

// NewListCommand creates the "list" cobra command (spec.md §4.9).
func NewListCommand() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reservations",
		Long: `list prints every reservation, optionally narrowed by project, tag,
or path prefix, as a text table or one of table|json|csv|tsv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(flags)
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", "table", "output format: table|json|csv|tsv")
	cmd.Flags().StringVar(&flags.filterProject, "filter-project", "", "only show reservations for this project")
	cmd.Flags().StringVar(&flags.filterTag, "filter-tag", "", "only show reservations with this tag")
	cmd.Flags().StringVar(&flags.filterPath, "filter-path", "", "only show reservations at or under this path")
	cmd.Flags().BoolVar(&flags.showFullPaths, "show-full-paths", false, "never truncate the PATH column")

	return cmd
}

func runList(flags *listFlags) error {
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

	filter := store.ListFilter{PathPrefix: flags.filterPath}
	if flags.filterProject != "" {
		filter.Project = &flags.filterProject
	}

	reservations, err := query.List(currentContext(), s.DB(), filter)
	if err != nil {
		return err
	}
	if flags.filterTag != "" {
		reservations = filterByTag(reservations, flags.filterTag)
	}

	rows := make([]reservationRow, 0, len(reservations))
	for _, r := range reservations {
		rows = append(rows, toReservationRow(r))
	}

	switch flags.format {
	case "json":
		printJSON(rows)
	case "csv":
		printDelimited(rows, ",")
	case "tsv":
		printDelimited(rows, "\t")
	default:
		printReservationTable(rows, flags.showFullPaths)
	}
	return nil
}

func filterByTag(reservations []model.Reservation, tag string) []model.Reservation {
	var out []model.Reservation
	for _, r := range reservations {
		if r.Key.TagOrEmpty() == tag {
			out = append(out, r)
		}
	}
	return out
}

func printDelimited(rows []reservationRow, sep string) {
	printRow(sep, "port", "path", "tag", "project", "task", "created_at", "last_used_at")
	for _, row := range rows {
		printRow(sep,
			strconv.Itoa(row.Port), row.Path, row.Tag,
			derefOr(row.Project, ""), derefOr(row.Task, ""),
			row.CreatedAt, row.LastUsedAt,
		)
	}
}
