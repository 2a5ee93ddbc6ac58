package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// envBool parses the fixed boolean vocabulary env vars use:
// true/false/1/0/yes/no/on/off, case-insensitively (spec.md §3.2).
func envBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", raw)
	}
}

// applyEnv overlays the fixed environment-variable mapping onto raw,
// mutating it in place. Only variables actually present in the environment
// have any effect.
func applyEnv(raw *rawConfig, getenv func(string) string) error {
	if v := getenv("TROP_PORT_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TROP_PORT_MIN: %w", err)
		}
		if raw.PortRange == nil {
			raw.PortRange = &rawPortRange{}
		}
		raw.PortRange.Min = n
	}
	if v := getenv("TROP_PORT_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TROP_PORT_MAX: %w", err)
		}
		if raw.PortRange == nil {
			raw.PortRange = &rawPortRange{}
		}
		raw.PortRange.Max = n
	}
	if v := getenv("TROP_EXCLUDED_PORTS"); v != "" {
		for _, entry := range strings.Split(v, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				raw.ExcludedPorts = append(raw.ExcludedPorts, entry)
			}
		}
	}
	if v := getenv("TROP_EXPIRE_AFTER_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TROP_EXPIRE_AFTER_DAYS: %w", err)
		}
		raw.ExpireAfterDays = &n
	}
	if err := applyEnvBool(&raw.DisableAutoinit, "TROP_DISABLE_AUTOINIT", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.DisableAutoprune, "TROP_DISABLE_AUTOPRUNE", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.DisableAutoexpire, "TROP_DISABLE_AUTOEXPIRE", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.AllowUnrelatedPath, "TROP_ALLOW_UNRELATED_PATH", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.AllowChangeProject, "TROP_ALLOW_CHANGE_PROJECT", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.AllowChangeTask, "TROP_ALLOW_CHANGE_TASK", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.AllowChange, "TROP_ALLOW_CHANGE", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.Force, "TROP_FORCE", getenv); err != nil {
		return err
	}
	if v := getenv("TROP_MAXIMUM_LOCK_WAIT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TROP_MAXIMUM_LOCK_WAIT_SECONDS: %w", err)
		}
		raw.MaximumLockWaitSeconds = &n
	}
	if raw.Occupancy == nil {
		raw.Occupancy = &rawOccupancy{}
	}
	if err := applyEnvBool(&raw.Occupancy.Skip, "TROP_SKIP_OCCUPANCY_CHECK", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.Occupancy.SkipTCP, "TROP_SKIP_TCP", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.Occupancy.SkipUDP, "TROP_SKIP_UDP", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.Occupancy.SkipIPv4, "TROP_SKIP_IPV4", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.Occupancy.SkipIPv6, "TROP_SKIP_IPV6", getenv); err != nil {
		return err
	}
	if err := applyEnvBool(&raw.Occupancy.CheckAllInterfaces, "TROP_CHECK_ALL_INTERFACES", getenv); err != nil {
		return err
	}
	if *raw.Occupancy == (rawOccupancy{}) {
		raw.Occupancy = nil
	}
	return nil
}

func applyEnvBool(field **bool, name string, getenv func(string) string) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	b, err := envBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*field = &b
	return nil
}

// osEnviron adapts os.Getenv to the getenv func(string) string signature
// applyEnv expects, so tests can substitute a map-backed fake.
func osEnviron(name string) string {
	return os.Getenv(name)
}
