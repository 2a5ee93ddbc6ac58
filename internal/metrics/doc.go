// Package metrics exposes reservation-health gauges for scraping (a
// supplemented feature beyond spec.md's core scope — see SPEC_FULL.md §3),
// using github.com/prometheus/client_golang/prometheus/promhttp to serve
// them on a mux at /metrics.
package metrics
