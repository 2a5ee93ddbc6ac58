package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trop-dev/trop/internal/model"
)

// rawConfig mirrors the on-disk trop.yaml / trop.local.yaml schema. Every
// scalar is a pointer so the decoder can tell "absent" from "explicitly
// zero" — last-writer-wins merging needs that distinction.
type rawConfig struct {
	PortRange              *rawPortRange     `yaml:"port_range"`
	ExcludedPorts          []string          `yaml:"excluded_ports"`
	ExpireAfterDays        *int              `yaml:"expire_after_days"`
	DisableAutoinit        *bool             `yaml:"disable_autoinit"`
	DisableAutoprune       *bool             `yaml:"disable_autoprune"`
	DisableAutoexpire      *bool             `yaml:"disable_autoexpire"`
	AllowUnrelatedPath     *bool             `yaml:"allow_unrelated_path"`
	AllowChangeProject     *bool             `yaml:"allow_change_project"`
	AllowChangeTask        *bool             `yaml:"allow_change_task"`
	AllowChange            *bool             `yaml:"allow_change"`
	Force                  *bool             `yaml:"force"`
	MaximumLockWaitSeconds *int              `yaml:"maximum_lock_wait_seconds"`
	Occupancy              *rawOccupancy     `yaml:"occupancy"`
	Project                *string           `yaml:"project"`
	Reservations           *rawGroupTemplate `yaml:"reservations"`
}

type rawPortRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type rawOccupancy struct {
	Skip               *bool `yaml:"skip"`
	SkipTCP            *bool `yaml:"skip_tcp"`
	SkipUDP            *bool `yaml:"skip_udp"`
	SkipIPv4           *bool `yaml:"skip_ipv4"`
	SkipIPv6           *bool `yaml:"skip_ipv6"`
	CheckAllInterfaces *bool `yaml:"check_all_interfaces"`
}

type rawGroupTemplate struct {
	Base     *int             `yaml:"base"`
	Services []rawServiceSpec `yaml:"services"`
}

type rawServiceSpec struct {
	Tag       string `yaml:"tag"`
	Offset    int    `yaml:"offset"`
	Preferred *int   `yaml:"preferred"`
	Env       string `yaml:"env"`
}

// scope identifies which file kind produced a rawConfig, since project-only
// fields are rejected in user-global files (spec.md §3.2).
type scope string

const (
	scopeUserGlobal scope = "user-global"
	scopeProject    scope = "project"
)

// decodeStrict parses YAML with unknown-field rejection.
func decodeStrict(data []byte, path string) (*rawConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw rawConfig
	if err := dec.Decode(&raw); err != nil {
		return nil, model.NewTropError(model.KindConfiguration,
			fmt.Sprintf("parsing %s: %v", path, err))
	}
	return &raw, nil
}

// loadFile reads and strictly decodes a single config file, scope-checking
// fields that are only valid in project config.
func loadFile(path string, sc scope) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &rawConfig{}, nil
		}
		return nil, model.WrapTropError(model.KindConfiguration, fmt.Sprintf("reading %s", path), err)
	}

	raw, err := decodeStrict(data, path)
	if err != nil {
		return nil, err
	}

	if sc == scopeUserGlobal {
		if raw.Project != nil {
			return nil, model.NewTropError(model.KindConfiguration,
				fmt.Sprintf("%s: \"project\" is only valid in project config, not user-global", path))
		}
		if raw.Reservations != nil {
			return nil, model.NewTropError(model.KindConfiguration,
				fmt.Sprintf("%s: \"reservations\" is only valid in project config, not user-global", path))
		}
	}

	return raw, nil
}

// parseExclusion parses one excluded_ports entry: either "N" (a singleton)
// or "N..M" (an inclusive range), the same "a..b" notation spec.md uses
// for the exclude CLI command's range argument.
func parseExclusion(s string) (model.PortExclusion, error) {
	s = strings.TrimSpace(s)
	if dash := strings.Index(s, ".."); dash >= 0 {
		startRaw, endRaw := s[:dash], s[dash+2:]
		start, err := strconv.Atoi(strings.TrimSpace(startRaw))
		if err != nil {
			return model.PortExclusion{}, fmt.Errorf("invalid exclusion %q: %w", s, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(endRaw))
		if err != nil {
			return model.PortExclusion{}, fmt.Errorf("invalid exclusion %q: %w", s, err)
		}
		startPort, err := model.NewPort(start)
		if err != nil {
			return model.PortExclusion{}, fmt.Errorf("invalid exclusion %q: %w", s, err)
		}
		endPort, err := model.NewPort(end)
		if err != nil {
			return model.PortExclusion{}, fmt.Errorf("invalid exclusion %q: %w", s, err)
		}
		return model.NewRangeExclusion(startPort, endPort)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return model.PortExclusion{}, fmt.Errorf("invalid exclusion %q: %w", s, err)
	}
	port, err := model.NewPort(n)
	if err != nil {
		return model.PortExclusion{}, fmt.Errorf("invalid exclusion %q: %w", s, err)
	}
	return model.NewSingleExclusion(port), nil
}
