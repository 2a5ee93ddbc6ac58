package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/trop-dev/trop/internal/model"
)

// colorEnabled reports whether ANSI color should be applied to table
// output: stdout is a TTY, and no machine-readable format was requested.
func colorEnabled(format string) bool {
	if format != "" && format != "table" && format != "human" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

var (
	colorReserved = color.New(color.FgGreen)
	colorOccupied = color.New(color.FgYellow)
	colorError    = color.New(color.FgRed)
)

// printJSON writes v to stdout as indented JSON, the machine-readable
// format every list-like command supports alongside its table rendering.
func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

// printPort writes a single allocated port as a bare integer and newline,
// per spec.md §6: "PORT=$(trop reserve)" must work.
func printPort(p model.Port) {
	fmt.Println(p.Int())
}

// reservationRow is the shared tabular projection of a model.Reservation
// used by list, port-info, show-path, and the cleanup commands' JSON output.
type reservationRow struct {
	Path       string  `json:"path"`
	Tag        string  `json:"tag,omitempty"`
	Port       int     `json:"port"`
	Project    *string `json:"project,omitempty"`
	Task       *string `json:"task,omitempty"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt string  `json:"last_used_at"`
}

func toReservationRow(r model.Reservation) reservationRow {
	return reservationRow{
		Path:       r.Key.Path,
		Tag:        r.Key.TagOrEmpty(),
		Port:       r.Port.Int(),
		Project:    r.Project,
		Task:       r.Task,
		CreatedAt:  r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		LastUsedAt: r.LastUsedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// printReservationTable renders reservations as an aligned text table,
// with a relative "last used" column rendered by go-humanize — matching
// the age-reporting idiom SPEC_FULL.md carries from the pack's workstation
// tooling.
func printReservationTable(rows []reservationRow, showFullPaths bool) {
	if len(rows) == 0 {
		fmt.Println("No reservations found.")
		return
	}

	fmt.Printf("%-6s %-40s %-12s %-12s %-12s %s\n",
		"PORT", "PATH", "TAG", "PROJECT", "TASK", "LAST USED")

	for _, row := range rows {
		path := row.Path
		if !showFullPaths && len(path) > 40 {
			path = "…" + path[len(path)-39:]
		}
		project := derefOr(row.Project, "-")
		task := derefOr(row.Task, "-")
		tag := row.Tag
		if tag == "" {
			tag = "-"
		}

		lastUsed := "-"
		if t, err := time.Parse("2006-01-02T15:04:05Z07:00", row.LastUsedAt); err == nil {
			lastUsed = humanize.Time(t)
		}

		fmt.Printf("%-6d %-40s %-12s %-12s %-12s %s\n",
			row.Port, path, tag, project, task, lastUsed)
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// sortStrings returns a sorted copy of ss, used by commands that need a
// deterministic, alphabetical rendering (e.g. list-projects).
func sortStrings(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}

// printRow writes one delimited row to stdout, quoting a field if it
// contains the delimiter.
func printRow(sep string, fields ...string) {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		if strings.Contains(f, sep) || strings.Contains(f, "\"") {
			f = "\"" + strings.ReplaceAll(f, "\"", "\"\"") + "\""
		}
		escaped[i] = f
	}
	fmt.Println(strings.Join(escaped, sep))
}

// joinNonEmpty joins only the non-empty strings in parts with sep.
func joinNonEmpty(parts []string, sep string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
