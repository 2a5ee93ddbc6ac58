package config

import (
	"os"
	"path/filepath"

	"github.com/trop-dev/trop/internal/model"
)

const (
	projectConfigName      = "trop.yaml"
	projectLocalConfigName = "trop.local.yaml"
	userGlobalConfigName   = "config.yaml"
)

// Resolver resolves the effective configuration for a given start
// directory, applying the precedence order in spec.md §3.2: defaults ≺
// user-global ≺ project ≺ project-local ≺ environment ≺ caller override.
type Resolver struct {
	// UserGlobalDir is the directory holding the user-global config.yaml.
	// The CLI sets it to the data directory, so config.yaml sits next to
	// trop.db.
	UserGlobalDir string
	// Getenv overrides os.Getenv; tests substitute a map-backed fake.
	Getenv func(string) string
}

// NewResolver builds a Resolver rooted at the standard per-user config
// directory ($XDG_CONFIG_HOME/trop, falling back to os.UserConfigDir()).
func NewResolver() (*Resolver, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		UserGlobalDir: filepath.Join(dir, "trop"),
		Getenv:        osEnviron,
	}, nil
}

// Option applies an explicit caller override, the highest-precedence layer
// (spec.md §3.2). Options run after every file and environment layer.
type Option func(*Config)

// WithForce overrides the force master switch.
func WithForce(v bool) Option { return func(c *Config) { c.Force = v } }

// WithAllowUnrelatedPath overrides allow_unrelated_path.
func WithAllowUnrelatedPath(v bool) Option { return func(c *Config) { c.AllowUnrelatedPath = v } }

// WithAllowChangeProject overrides allow_change_project.
func WithAllowChangeProject(v bool) Option { return func(c *Config) { c.AllowChangeProject = v } }

// WithAllowChangeTask overrides allow_change_task.
func WithAllowChangeTask(v bool) Option { return func(c *Config) { c.AllowChangeTask = v } }

// WithAllowChange overrides both allow_change_project and
// allow_change_task at once, the allow_change shorthand.
func WithAllowChange(v bool) Option {
	return func(c *Config) {
		c.AllowChangeProject = v
		c.AllowChangeTask = v
	}
}

// WithPortRange overrides port_range.
func WithPortRange(r model.PortRange) Option { return func(c *Config) { c.PortRange = r } }

// WithExpireAfterDays overrides expire_after_days.
func WithExpireAfterDays(days int) Option { return func(c *Config) { c.ExpireAfterDays = days } }

// WithDisableAutoprune overrides disable_autoprune.
func WithDisableAutoprune(v bool) Option { return func(c *Config) { c.DisableAutoprune = v } }

// WithDisableAutoexpire overrides disable_autoexpire.
func WithDisableAutoexpire(v bool) Option { return func(c *Config) { c.DisableAutoexpire = v } }

// Resolve walks up from startDir looking for trop.yaml / trop.local.yaml,
// stopping at the first directory that contains either, then merges every
// layer in precedence order and applies the given caller overrides last.
func Resolve(r *Resolver, startDir string, overrides ...Option) (Config, error) {
	cfg := Defaults()

	userGlobalPath := filepath.Join(r.UserGlobalDir, userGlobalConfigName)
	userGlobalRaw, err := loadFile(userGlobalPath, scopeUserGlobal)
	if err != nil {
		return Config{}, err
	}
	if err := mergeLayer(&cfg, userGlobalRaw); err != nil {
		return Config{}, err
	}

	projectDir, found := findProjectDir(startDir)
	if found {
		projectRaw, err := loadFile(filepath.Join(projectDir, projectConfigName), scopeProject)
		if err != nil {
			return Config{}, err
		}
		if err := mergeLayer(&cfg, projectRaw); err != nil {
			return Config{}, err
		}

		localRaw, err := loadFile(filepath.Join(projectDir, projectLocalConfigName), scopeProject)
		if err != nil {
			return Config{}, err
		}
		if err := mergeLayer(&cfg, localRaw); err != nil {
			return Config{}, err
		}
	}

	getenv := r.Getenv
	if getenv == nil {
		getenv = osEnviron
	}
	envRaw := &rawConfig{}
	if err := applyEnv(envRaw, getenv); err != nil {
		return Config{}, err
	}
	if err := mergeLayer(&cfg, envRaw); err != nil {
		return Config{}, err
	}

	for _, opt := range overrides {
		opt(&cfg)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// findProjectDir walks up from startDir looking for trop.yaml or
// trop.local.yaml, stopping at the first match or at the filesystem root.
func findProjectDir(startDir string) (string, bool) {
	dir := startDir
	for {
		if fileExists(filepath.Join(dir, projectConfigName)) || fileExists(filepath.Join(dir, projectLocalConfigName)) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
