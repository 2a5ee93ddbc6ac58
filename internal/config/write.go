package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trop-dev/trop/internal/model"
)

// ParseExclusionArg parses a command-line exclusion argument in the same
// "N" / "N..M" notation accepted in excluded_ports config entries.
func ParseExclusionArg(s string) (model.PortExclusion, error) {
	return parseExclusion(s)
}

// AddExclusion appends an exclusion to the excluded_ports list of the file
// at path (user-global or project, selected by the caller) and writes the
// file back. Per spec.md, this is structural serialization: any
// human-authored comments in the file are lost, which is an accepted
// tradeoff, not a bug.
func AddExclusion(path string, excl model.PortExclusion) error {
	raw, err := loadRawForWrite(path)
	if err != nil {
		return err
	}

	raw.ExcludedPorts = append(raw.ExcludedPorts, exclusionToString(excl))
	return writeRaw(path, raw)
}

// CompactResult reports what compact-exclusions did to one config file.
type CompactResult struct {
	Before []model.PortExclusion
	After  []model.PortExclusion
}

// CompactExclusions reads the excluded_ports list at path, compacts it
// (spec.md §4.5: sort by start, merge overlapping/adjacent entries,
// collapse length-1 ranges to singletons), and writes the result back
// unless dryRun.
func CompactExclusions(path string, dryRun bool) (CompactResult, error) {
	raw, err := loadRawForWrite(path)
	if err != nil {
		return CompactResult{}, err
	}

	before := make([]model.PortExclusion, 0, len(raw.ExcludedPorts))
	for _, s := range raw.ExcludedPorts {
		excl, err := parseExclusion(s)
		if err != nil {
			return CompactResult{}, err
		}
		before = append(before, excl)
	}

	set := model.NewExclusionSet(before...)
	set.Compact()
	after := set.Entries()

	if !dryRun {
		raw.ExcludedPorts = make([]string, 0, len(after))
		for _, excl := range after {
			raw.ExcludedPorts = append(raw.ExcludedPorts, exclusionToString(excl))
		}
		if err := writeRaw(path, raw); err != nil {
			return CompactResult{}, err
		}
	}

	return CompactResult{Before: before, After: after}, nil
}

// loadRawForWrite reads and strictly decodes path for an in-place rewrite.
// A missing file starts from an empty rawConfig rather than erroring,
// since exclude/compact-exclusions may be the first write to a fresh
// project.
func loadRawForWrite(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &rawConfig{}, nil
		}
		return nil, model.WrapTropError(model.KindConfiguration, fmt.Sprintf("reading %s", path), err)
	}
	return decodeStrict(data, path)
}

// WriteDefaults writes a config.yaml populated with the built-in defaults,
// for "init --with-config" to give a caller something to edit rather than
// an empty file that silently falls through to Defaults() anyway.
func WriteDefaults(path string) error {
	d := Defaults()
	raw := &rawConfig{
		PortRange:       &rawPortRange{Min: d.PortRange.Min.Int(), Max: d.PortRange.Max.Int()},
		ExpireAfterDays: &d.ExpireAfterDays,
	}
	return writeRaw(path, raw)
}

func writeRaw(path string, raw *rawConfig) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return model.WrapTropError(model.KindConfiguration, fmt.Sprintf("encoding %s", path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.WrapTropError(model.KindConfiguration, fmt.Sprintf("writing %s", path), err)
	}
	return nil
}

func exclusionToString(excl model.PortExclusion) string {
	if excl.IsSingleton() {
		return fmt.Sprintf("%d", excl.Start.Int())
	}
	return fmt.Sprintf("%d..%d", excl.Start.Int(), excl.End.Int())
}
