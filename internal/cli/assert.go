package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/pathutil"
	"github.com/trop-dev/trop/internal/query"
)

// NewAssertReservationCommand creates the "assert-reservation" cobra
// command: a scriptable precondition check, exiting with a semantic
// failure (spec.md §7) rather than printing anything when the assertion
// fails, so CI/hook scripts can branch on exit code alone. --not inverts
// the check: succeed only when no reservation exists.
func NewAssertReservationCommand() *cobra.Command {
	var path, tag string
	var not bool
	cmd := &cobra.Command{
		Use:   "assert-reservation",
		Short: "Exit non-zero unless path has a reservation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssertReservation(path, tag, not)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "path to check (default: current directory)")
	cmd.Flags().StringVar(&tag, "tag", "", "the reservation's tag, if any")
	cmd.Flags().BoolVar(&not, "not", false, "invert the assertion: succeed only if no reservation exists")
	return cmd
}

func runAssertReservation(path, tag string, not bool) error {
	path, err := resolvePathArg(path)
	if err != nil {
		return err
	}
	var tagPtr *string
	if tag != "" {
		tagPtr = &tag
	}
	key, err := model.NewReservationKey(path, tagPtr)
	if err != nil {
		return err
	}

	s, err := openDefaultStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	r, err := query.Get(currentContext(), s.DB(), key)
	if err != nil {
		return err
	}

	if not {
		if r != nil {
			return model.NewTropError(model.KindSemanticFailure, fmt.Sprintf("expected no reservation at %s, found one on %s", key, r.Port))
		}
		return nil
	}
	if r == nil {
		return model.NewTropError(model.KindSemanticFailure, fmt.Sprintf("no reservation at %s", key))
	}
	printPort(r.Port)
	return nil
}

// NewAssertPortCommand creates the "assert-port" cobra command: fails
// unless the current (or --path) directory is reserved on exactly the
// given port. --not inverts the check.
func NewAssertPortCommand() *cobra.Command {
	var path, tag string
	var not bool
	cmd := &cobra.Command{
		Use:   "assert-port <port>",
		Short: "Exit non-zero unless path is reserved on exactly this port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssertPort(path, args[0], tag, not)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "path to check (default: current directory)")
	cmd.Flags().StringVar(&tag, "tag", "", "the reservation's tag, if any")
	cmd.Flags().BoolVar(&not, "not", false, "invert the assertion: succeed only if path does not hold this port")
	return cmd
}

func runAssertPort(path, rawPort, tag string, not bool) error {
	path, err := resolvePathArg(path)
	if err != nil {
		return err
	}
	n, err := parsePortArg(rawPort)
	if err != nil {
		return err
	}
	wantPort, err := model.NewPort(n)
	if err != nil {
		return model.WrapTropError(model.KindInvalidPort, fmt.Sprintf("port %d", n), err)
	}

	var tagPtr *string
	if tag != "" {
		tagPtr = &tag
	}
	key, err := model.NewReservationKey(path, tagPtr)
	if err != nil {
		return err
	}

	s, err := openDefaultStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	r, err := query.Get(currentContext(), s.DB(), key)
	if err != nil {
		return err
	}

	holds := r != nil && r.Port == wantPort
	if not {
		if holds {
			return model.NewTropError(model.KindSemanticFailure, fmt.Sprintf("%s is reserved on %s", key, wantPort))
		}
		return nil
	}
	if r == nil {
		return model.NewTropError(model.KindSemanticFailure, fmt.Sprintf("no reservation at %s", key))
	}
	if !holds {
		return model.NewTropError(model.KindSemanticFailure,
			fmt.Sprintf("%s is reserved on %s, not %s", key, r.Port, wantPort))
	}
	return nil
}

// NewAssertDataDirCommand creates the "assert-data-dir" cobra command:
// fails unless the resolved data directory exists. --validate also opens
// the store and checks its schema version; --not inverts the check.
func NewAssertDataDirCommand() *cobra.Command {
	var validate, not bool
	cmd := &cobra.Command{
		Use:   "assert-data-dir",
		Short: "Exit non-zero unless the trop data directory is initialized",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssertDataDir(validate, not)
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "also open the store and check its schema version")
	cmd.Flags().BoolVar(&not, "not", false, "invert the assertion: succeed only if uninitialized")
	return cmd
}

func runAssertDataDir(validate, not bool) error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	_, statErr := os.Stat(dataDir)
	exists := statErr == nil

	if exists && validate {
		s, err := openDefaultStore()
		if err != nil {
			return err
		}
		_ = s.Close()
	}

	if not {
		if exists {
			return model.NewTropError(model.KindSemanticFailure, fmt.Sprintf("expected no data directory, found one at %s", dataDir))
		}
		return nil
	}
	if !exists {
		return model.NewTropError(model.KindNoDataDirectory, fmt.Sprintf("no data directory at %s", dataDir))
	}
	fmt.Println(dataDir)
	return nil
}

// resolvePathArg normalizes path, defaulting to the current directory
// when empty.
func resolvePathArg(path string) (string, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", model.WrapTropError(model.KindInternal, "resolving current directory", err)
		}
		path = cwd
	}
	return pathutil.Normalize(path)
}
