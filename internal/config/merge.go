package config

import (
	"fmt"

	"github.com/trop-dev/trop/internal/model"
)

// mergeLayer overlays raw onto cfg following last-writer-wins semantics,
// except excluded_ports, which accumulates as a set union (spec.md §3.2).
func mergeLayer(cfg *Config, raw *rawConfig) error {
	if raw.PortRange != nil {
		min, max := cfg.PortRange.Min.Int(), cfg.PortRange.Max.Int()
		if raw.PortRange.Min != 0 {
			min = raw.PortRange.Min
		}
		if raw.PortRange.Max != 0 {
			max = raw.PortRange.Max
		}
		pr, err := model.NewPortRange(min, max)
		if err != nil {
			return err
		}
		cfg.PortRange = pr
	}

	for _, entry := range raw.ExcludedPorts {
		excl, err := parseExclusion(entry)
		if err != nil {
			return err
		}
		cfg.ExcludedPorts = model.NewExclusionSet(append(cfg.ExcludedPorts.Entries(), excl)...)
	}

	if raw.ExpireAfterDays != nil {
		cfg.ExpireAfterDays = *raw.ExpireAfterDays
	}
	if raw.DisableAutoinit != nil {
		cfg.DisableAutoinit = *raw.DisableAutoinit
	}
	if raw.DisableAutoprune != nil {
		cfg.DisableAutoprune = *raw.DisableAutoprune
	}
	if raw.DisableAutoexpire != nil {
		cfg.DisableAutoexpire = *raw.DisableAutoexpire
	}
	if raw.AllowUnrelatedPath != nil {
		cfg.AllowUnrelatedPath = *raw.AllowUnrelatedPath
	}
	if raw.AllowChangeProject != nil {
		cfg.AllowChangeProject = *raw.AllowChangeProject
	}
	if raw.AllowChangeTask != nil {
		cfg.AllowChangeTask = *raw.AllowChangeTask
	}
	if raw.AllowChange != nil && *raw.AllowChange {
		cfg.AllowChangeProject = true
		cfg.AllowChangeTask = true
	}
	if raw.Force != nil {
		cfg.Force = *raw.Force
	}
	if raw.MaximumLockWaitSeconds != nil {
		cfg.MaximumLockWaitSeconds = *raw.MaximumLockWaitSeconds
	}

	if raw.Occupancy != nil {
		o := raw.Occupancy
		if o.Skip != nil {
			cfg.Occupancy.Skip = *o.Skip
		}
		if o.SkipTCP != nil {
			cfg.Occupancy.SkipTCP = *o.SkipTCP
		}
		if o.SkipUDP != nil {
			cfg.Occupancy.SkipUDP = *o.SkipUDP
		}
		if o.SkipIPv4 != nil {
			cfg.Occupancy.SkipIPv4 = *o.SkipIPv4
		}
		if o.SkipIPv6 != nil {
			cfg.Occupancy.SkipIPv6 = *o.SkipIPv6
		}
		if o.CheckAllInterfaces != nil {
			cfg.Occupancy.CheckAllInterfaces = *o.CheckAllInterfaces
		}
	}

	if raw.Project != nil {
		cfg.Project = *raw.Project
	}

	if raw.Reservations != nil {
		tmpl, err := toGroupTemplate(raw.Reservations)
		if err != nil {
			return err
		}
		cfg.Reservations = tmpl
	}

	return nil
}

func toGroupTemplate(raw *rawGroupTemplate) (*GroupTemplate, error) {
	tmpl := &GroupTemplate{}
	if raw.Base != nil {
		base, err := model.NewPort(*raw.Base)
		if err != nil {
			return nil, fmt.Errorf("reservations.base: %w", err)
		}
		tmpl.Base = &base
	}

	services := make([]ServiceSpec, 0, len(raw.Services))
	for _, s := range raw.Services {
		spec := ServiceSpec{Tag: s.Tag, Offset: s.Offset, Env: s.Env}
		if s.Preferred != nil {
			p, err := model.NewPort(*s.Preferred)
			if err != nil {
				return nil, fmt.Errorf("reservations.services[%s].preferred: %w", s.Tag, err)
			}
			spec.Preferred = &p
		}
		services = append(services, spec)
	}
	tmpl.Services = services
	return tmpl, nil
}
