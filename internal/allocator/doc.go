// Package allocator implements single and group port allocation (spec.md
// §4.6): an ordered check-then-scan over a configurable [min, max] range
// with reserved/excluded/occupied checks applied in the mandated order.
// Group allocation extends this with a base+stride search: minPort +
// index*stride, generalized to an explicit offset set per service instead
// of a single stride.
package allocator
