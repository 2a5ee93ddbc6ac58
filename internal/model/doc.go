// Package model defines the domain types and value objects for trop's
// reservation engine: ports, port ranges, exclusion sets, reservation keys
// and records, and the error/exit-code vocabulary shared by every other
// internal package.
//
// These are pure data structures with no I/O. The Store, Allocator, and
// Planner packages operate on these types but never redefine them.
package model
