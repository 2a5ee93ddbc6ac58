// Package main is the entry point for the trop CLI.
//
// It delegates all functionality to the internal/cli package, which
// defines the cobra command tree.
package main

import (
	"github.com/trop-dev/trop/internal/cli"
)

// version, commit, and date are set by GoReleaser at build time via
// ldflags. During development they default to "dev", "none", "unknown".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
