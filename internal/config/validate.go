package config

import (
	"fmt"
	"regexp"

	"github.com/trop-dev/trop/internal/model"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate checks the merged result against spec.md §4.3: non-zero
// expire_after_days, port_range.min <= max (already enforced by
// model.NewPortRange at merge time), each exclusion's start <= end (already
// enforced by model.NewRangeExclusion), non-empty identifiers, and for
// group templates that offsets are unique and env names are valid and
// unique.
func Validate(cfg Config) error {
	if cfg.ExpireAfterDays == 0 {
		return model.NewTropError(model.KindValidation, "expire_after_days must be non-zero")
	}
	if cfg.MaximumLockWaitSeconds <= 0 {
		return model.NewTropError(model.KindValidation, "maximum_lock_wait_seconds must be positive")
	}

	if cfg.Reservations != nil {
		if err := validateGroupTemplate(cfg.Reservations); err != nil {
			return err
		}
	}

	return nil
}

func validateGroupTemplate(tmpl *GroupTemplate) error {
	seenOffsets := make(map[int]string)
	seenEnv := make(map[string]string)

	for _, svc := range tmpl.Services {
		if svc.Tag == "" {
			return model.NewTropError(model.KindValidation, "reservations: every service needs a non-empty tag")
		}
		if prior, ok := seenOffsets[svc.Offset]; ok {
			return model.NewTropError(model.KindValidation,
				fmt.Sprintf("reservations: offset %d used by both %q and %q", svc.Offset, prior, svc.Tag))
		}
		seenOffsets[svc.Offset] = svc.Tag

		if svc.Env != "" {
			if !envNamePattern.MatchString(svc.Env) {
				return model.NewTropError(model.KindValidation,
					fmt.Sprintf("reservations: %q has invalid env name %q (must be letter-led [A-Za-z0-9_]+)", svc.Tag, svc.Env))
			}
			if prior, ok := seenEnv[svc.Env]; ok {
				return model.NewTropError(model.KindValidation,
					fmt.Sprintf("reservations: env name %q used by both %q and %q", svc.Env, prior, svc.Tag))
			}
			seenEnv[svc.Env] = svc.Tag
		}
	}
	return nil
}
