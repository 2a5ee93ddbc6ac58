package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/trop-dev/trop/internal/model"
)

// ValidateFile loads a single project-scope config file in isolation
// (merged over Defaults, with no user-global/environment/override layers)
// and validates it. Used by the "validate" CLI command to sanity-check a
// trop.yaml before it's committed, independent of whatever machine runs
// the check. A ".jsonc" file is accepted too: comments are stripped before
// decoding, since the resulting JSON is valid YAML.
func ValidateFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, model.WrapTropError(model.KindConfiguration, fmt.Sprintf("reading %s", path), err)
	}
	if strings.HasSuffix(path, ".jsonc") {
		data = jsonc.ToJSON(data)
	}
	raw, err := decodeStrict(data, path)
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	if err := mergeLayer(&cfg, raw); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
