// Package query implements the read-only query surface of spec.md §4.9:
// lookups that need no write transaction, since readers do not block and
// are not blocked by the IMMEDIATE writer.
package query
