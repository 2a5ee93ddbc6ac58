package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trop-dev/trop/internal/model"
	"github.com/trop-dev/trop/internal/store"
)

// Collector tracks gauges reflecting the current reservation store. Each
// gauge is refreshed on demand by Refresh rather than hooked into every
// mutation, since trop is a short-lived CLI process, not a long-running
// server — the only long-lived consumer is `trop metrics serve`.
type Collector struct {
	registry *prometheus.Registry

	totalReservations prometheus.Gauge
	distinctProjects  prometheus.Gauge
	rangeUtilization  prometheus.Gauge
}

// NewCollector builds a Collector on its own registry, so trop's metrics
// never collide with process-default collectors a host application might
// already have registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	return &Collector{
		registry: reg,
		totalReservations: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "trop",
			Name:      "reservations_total",
			Help:      "Current number of port reservations in the store.",
		}),
		distinctProjects: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "trop",
			Name:      "projects_total",
			Help:      "Current number of distinct projects with reservations.",
		}),
		rangeUtilization: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "trop",
			Name:      "port_range_utilization_ratio",
			Help:      "Fraction of the configured port range currently reserved.",
		}),
	}
}

// Refresh recomputes every gauge from the store's current state.
func (c *Collector) Refresh(ctx context.Context, q store.Queryable, portRange model.PortRange) error {
	all, err := store.All(ctx, q)
	if err != nil {
		return err
	}
	c.totalReservations.Set(float64(len(all)))

	projects, err := store.ListProjects(ctx, q)
	if err != nil {
		return err
	}
	c.distinctProjects.Set(float64(len(projects)))

	inRange, err := store.ReservedPortsInRange(ctx, q, portRange)
	if err != nil {
		return err
	}
	if size := portRange.Size(); size > 0 {
		c.rangeUtilization.Set(float64(len(inRange)) / float64(size))
	}

	return nil
}

// Handler returns an http.Handler exposing this Collector's registry in
// the Prometheus text exposition format, for a node_exporter textfile
// collector or a direct scrape target.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
