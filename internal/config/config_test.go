package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func fakeGetenv(values map[string]string) func(string) string {
	return func(name string) string { return values[name] }
}

func TestDefaults_MatchSpecDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, 5000, d.PortRange.Min.Int())
	assert.Equal(t, 7000, d.PortRange.Max.Int())
	assert.Equal(t, 30, d.ExpireAfterDays)
	assert.Equal(t, 5, d.MaximumLockWaitSeconds)
}

func TestResolve_ProjectFileOverridesDefaults(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeFile(t, filepath.Join(projectDir, projectConfigName), "port_range:\n  min: 6000\n  max: 6100\nexpire_after_days: 14\n")

	r := &Resolver{UserGlobalDir: userDir, Getenv: fakeGetenv(nil)}
	cfg, err := Resolve(r, projectDir)
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.PortRange.Min.Int())
	assert.Equal(t, 6100, cfg.PortRange.Max.Int())
	assert.Equal(t, 14, cfg.ExpireAfterDays)
}

func TestResolve_LocalOverridesProject(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeFile(t, filepath.Join(projectDir, projectConfigName), "expire_after_days: 14\n")
	writeFile(t, filepath.Join(projectDir, projectLocalConfigName), "expire_after_days: 7\n")

	r := &Resolver{UserGlobalDir: userDir, Getenv: fakeGetenv(nil)}
	cfg, err := Resolve(r, projectDir)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.ExpireAfterDays)
}

func TestResolve_EnvOverridesFiles(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeFile(t, filepath.Join(projectDir, projectConfigName), "expire_after_days: 14\n")

	r := &Resolver{
		UserGlobalDir: userDir,
		Getenv:        fakeGetenv(map[string]string{"TROP_EXPIRE_AFTER_DAYS": "3"}),
	}
	cfg, err := Resolve(r, projectDir)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.ExpireAfterDays)
}

func TestResolve_CallerOverrideWinsLast(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeFile(t, filepath.Join(projectDir, projectConfigName), "expire_after_days: 14\n")

	r := &Resolver{
		UserGlobalDir: userDir,
		Getenv:        fakeGetenv(map[string]string{"TROP_EXPIRE_AFTER_DAYS": "3"}),
	}
	cfg, err := Resolve(r, projectDir, WithExpireAfterDays(99), WithForce(true))
	require.NoError(t, err)

	assert.Equal(t, 99, cfg.ExpireAfterDays)
	assert.True(t, cfg.Force)
}

func TestResolve_ExcludedPortsAccumulateAcrossLayers(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeFile(t, filepath.Join(userDir, userGlobalConfigName), "excluded_ports:\n  - \"5432\"\n")
	writeFile(t, filepath.Join(projectDir, projectConfigName), "excluded_ports:\n  - \"6379\"\n  - \"6500..6510\"\n")

	r := &Resolver{UserGlobalDir: userDir, Getenv: fakeGetenv(nil)}
	cfg, err := Resolve(r, projectDir)
	require.NoError(t, err)

	entries := cfg.ExcludedPorts.Entries()
	assert.Len(t, entries, 3)
}

func TestResolve_WalksUpToFindProjectConfig(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()
	nested := filepath.Join(projectDir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	writeFile(t, filepath.Join(projectDir, projectConfigName), "expire_after_days: 21\n")

	r := &Resolver{UserGlobalDir: userDir, Getenv: fakeGetenv(nil)}
	cfg, err := Resolve(r, nested)
	require.NoError(t, err)

	assert.Equal(t, 21, cfg.ExpireAfterDays)
}

func TestResolve_UserGlobalRejectsProjectField(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeFile(t, filepath.Join(userDir, userGlobalConfigName), "project: myproj\n")

	r := &Resolver{UserGlobalDir: userDir, Getenv: fakeGetenv(nil)}
	_, err := Resolve(r, projectDir)
	require.Error(t, err)
}

func TestResolve_StrictModeRejectsUnknownField(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeFile(t, filepath.Join(projectDir, projectConfigName), "not_a_real_option: true\n")

	r := &Resolver{UserGlobalDir: userDir, Getenv: fakeGetenv(nil)}
	_, err := Resolve(r, projectDir)
	require.Error(t, err)
}

func TestResolve_AllowChangeShorthandSetsBoth(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeFile(t, filepath.Join(projectDir, projectConfigName), "allow_change: true\n")

	r := &Resolver{UserGlobalDir: userDir, Getenv: fakeGetenv(nil)}
	cfg, err := Resolve(r, projectDir)
	require.NoError(t, err)

	assert.True(t, cfg.AllowChangeProject)
	assert.True(t, cfg.AllowChangeTask)
}

func TestValidate_RejectsZeroExpireAfterDays(t *testing.T) {
	cfg := Defaults()
	cfg.ExpireAfterDays = 0
	require.Error(t, Validate(cfg))
}

func TestValidate_GroupTemplateRejectsDuplicateOffsets(t *testing.T) {
	cfg := Defaults()
	cfg.Reservations = &GroupTemplate{
		Services: []ServiceSpec{
			{Tag: "web", Offset: 0},
			{Tag: "api", Offset: 0},
		},
	}
	require.Error(t, Validate(cfg))
}

func TestValidate_GroupTemplateRejectsInvalidEnvName(t *testing.T) {
	cfg := Defaults()
	cfg.Reservations = &GroupTemplate{
		Services: []ServiceSpec{
			{Tag: "web", Offset: 0, Env: "1INVALID"},
		},
	}
	require.Error(t, Validate(cfg))
}

func TestValidate_GroupTemplateRejectsDuplicateEnvName(t *testing.T) {
	cfg := Defaults()
	cfg.Reservations = &GroupTemplate{
		Services: []ServiceSpec{
			{Tag: "web", Offset: 0, Env: "PORT"},
			{Tag: "api", Offset: 1, Env: "PORT"},
		},
	}
	require.Error(t, Validate(cfg))
}

func TestEnvBool_AcceptsFixedVocabulary(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "yes", "on"} {
		b, err := envBool(v)
		require.NoError(t, err)
		assert.True(t, b)
	}
	for _, v := range []string{"false", "FALSE", "0", "no", "off"} {
		b, err := envBool(v)
		require.NoError(t, err)
		assert.False(t, b)
	}
	_, err := envBool("maybe")
	require.Error(t, err)
}
