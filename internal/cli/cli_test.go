package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trop-dev/trop/internal/config"
	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/planner"
)

func mustKey(t *testing.T, path string, tag *string) model.ReservationKey {
	t.Helper()
	k, err := model.NewReservationKey(path, tag)
	require.NoError(t, err)
	return k
}

func TestFilterByTag_KeepsOnlyMatchingTag(t *testing.T) {
	api := "api"
	reservations := []model.Reservation{
		{Key: mustKey(t, "/work/a", &api)},
		{Key: mustKey(t, "/work/b", nil)},
	}

	out := filterByTag(reservations, "api")
	require.Len(t, out, 1)
	assert.Equal(t, "/work/a", out[0].Key.Path)
}

func TestFilterUntaggedDeletes_DropsTaggedKeys(t *testing.T) {
	api := "api"
	actions := []planner.Action{
		{Kind: planner.ActionDeleteReservation, Key: mustKey(t, "/work/a", &api)},
		{Kind: planner.ActionDeleteReservation, Key: mustKey(t, "/work/b", nil)},
		{Kind: planner.ActionUpdateLastUsed, Key: mustKey(t, "/work/c", &api)},
	}

	out := filterUntaggedDeletes(actions)
	require.Len(t, out, 2)
	assert.Equal(t, "/work/b", out[0].Key.Path)
	assert.Equal(t, "/work/c", out[1].Key.Path)
}

func TestDetectShell_PrefersExplicitOverride(t *testing.T) {
	assert.Equal(t, "fish", detectShell("fish"))
}

func TestDetectShell_FallsBackToFishEnvVar(t *testing.T) {
	t.Setenv("SHELL", "/bin/bash")
	t.Setenv("FISH_VERSION", "3.6")
	assert.Equal(t, "fish", detectShell(""))
}

func TestDetectShell_DefaultsToBash(t *testing.T) {
	t.Setenv("SHELL", "")
	t.Setenv("FISH_VERSION", "")
	t.Setenv("ZSH_VERSION", "")
	t.Setenv("PSModulePath", "")
	assert.Equal(t, "bash", detectShell(""))
}

func TestEffectiveExpireDays_FlagOverridesConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.ExpireAfterDays = 30
	assert.Equal(t, 7, effectiveExpireDays(7, cfg))
	assert.Equal(t, 30, effectiveExpireDays(0, cfg))
}

func TestCountRetags_CountsOnlyRetagActions(t *testing.T) {
	plan := planner.Plan{
		Actions: []planner.Action{
			{Kind: planner.ActionDeleteReservation},
			{Kind: planner.ActionRetagReservation},
			{Kind: planner.ActionRetagReservation},
		},
	}
	assert.Equal(t, 2, countRetags(plan))
}

func TestResolveDataDir_HonorsFlagOverride(t *testing.T) {
	orig := dataDirFlag
	dataDirFlag = "/tmp/explicit-data-dir"
	defer func() { dataDirFlag = orig }()

	dir, err := resolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit-data-dir", dir)
}

func TestResolveDataDir_HonorsEnvVar(t *testing.T) {
	orig := dataDirFlag
	dataDirFlag = ""
	defer func() { dataDirFlag = orig }()

	t.Setenv("TROP_DATA_DIR", "/tmp/env-data-dir")
	dir, err := resolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-data-dir", dir)
}

func TestPrintExportLine_DialectSyntax(t *testing.T) {
	// printExportLine writes to stdout; this just documents the
	// supported dialects compile and run without panicking.
	printExportLine("fish", "PORT", 5000)
	printExportLine("powershell", "PORT", 5000)
	printExportLine("bash", "PORT", 5000)
}
