// Package store implements trop's single-file relational store (spec.md
// §4.2): a metadata table carrying a schema version, and a reservations
// table keyed by (path, tag) with a UNIQUE constraint on port.
//
// The embedded database is modernc.org/sqlite, the pure-Go (no cgo) driver
// also used by Websoft9-AppOS and my-take-dev-myT-x for their own
// single-file stores. Schema shape — a key/value metadata table plus
// CREATE INDEX IF NOT EXISTS statements in one embedded string constant —
// follows steveyegge/beads' sqlite schema.
package store
