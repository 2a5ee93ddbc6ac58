package config

import "github.com/trop-dev/trop/internal/model"

// ServiceSpec describes one service's offset within a group reservation
// template (spec.md §4.6).
type ServiceSpec struct {
	Tag       string
	Offset    int
	Preferred *model.Port
	Env       string
}

// GroupTemplate is the project's group reservation pattern, valid only in project
// config (spec.md §3.2, §4.6). Base, if set, pins the scan to a single
// candidate instead of searching the configured port range.
type GroupTemplate struct {
	Base     *model.Port
	Services []ServiceSpec
}

// Occupancy controls which occupancy probes the allocator runs.
type Occupancy struct {
	Skip               bool
	SkipTCP            bool
	SkipUDP            bool
	SkipIPv4           bool
	SkipIPv6           bool
	CheckAllInterfaces bool
}

// Config is the fully-merged, validated effective configuration trop acts
// on. Every field here has a concrete value — resolution has already
// applied defaults, files, environment, and caller overrides by the time a
// Config reaches the rest of the program.
type Config struct {
	PortRange              model.PortRange
	ExcludedPorts          *model.ExclusionSet
	ExpireAfterDays        int
	DisableAutoinit        bool
	DisableAutoprune       bool
	DisableAutoexpire      bool
	AllowUnrelatedPath     bool
	AllowChangeProject     bool
	AllowChangeTask        bool
	Force                  bool
	MaximumLockWaitSeconds int
	Occupancy              Occupancy
	Project                string
	Reservations           *GroupTemplate
}

// EffectiveAllowChangeProject reports whether overwriting a sticky project
// field is permitted, honoring the allow_change shorthand and force.
func (c Config) EffectiveAllowChangeProject() bool {
	return c.AllowChangeProject || c.Force
}

// EffectiveAllowChangeTask reports whether overwriting a sticky task field
// is permitted, honoring the allow_change shorthand and force.
func (c Config) EffectiveAllowChangeTask() bool {
	return c.AllowChangeTask || c.Force
}

// EffectiveAllowUnrelatedPath reports whether a mutation on an unrelated
// path is permitted.
func (c Config) EffectiveAllowUnrelatedPath() bool {
	return c.AllowUnrelatedPath || c.Force
}
