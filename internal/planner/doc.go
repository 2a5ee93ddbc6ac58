// Package planner implements the plan-then-execute pattern of spec.md
// §4.8: every mutating operation builds an ordered, inspectable Plan
// inside a write transaction, then an executor applies it. The
// validate-then-lookup-then-branch orchestration style is familiar, but
// here it's restructured into a value the caller can inspect before
// committing (dry-run) rather than a sequence of direct calls.
package planner
