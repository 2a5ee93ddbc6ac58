// Package config resolves the effective trop configuration by merging
// built-in defaults, a user-global file, a discovered project file and its
// local override, environment variables, and explicit caller overrides, in
// that order of increasing precedence (spec.md §3.2).
//
// Files are parsed strictly with gopkg.in/yaml.v3, the same discipline
// github.com/tidwall/jsonc-backed strict JSONC parsing applies elsewhere
// in this codebase: unknown fields are rejected rather than silently
// ignored, since a typo'd option should fail loud, not be dropped.
package config
