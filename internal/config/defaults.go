package config

import "github.com/trop-dev/trop/internal/model"

// Defaults returns the built-in configuration defaults (spec.md §3.2),
// the lowest-precedence layer of resolution.
func Defaults() Config {
	portRange, err := model.NewPortRange(5000, 7000)
	if err != nil {
		panic("config: built-in default port range is invalid: " + err.Error())
	}
	return Config{
		PortRange:              portRange,
		ExcludedPorts:          model.NewExclusionSet(),
		ExpireAfterDays:        30,
		MaximumLockWaitSeconds: 5,
	}
}
