// Package obsmetrics registers the optimizer's Prometheus instruments.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every instrument one optimizer run updates.
type Metrics struct {
	GroupsTotal       prometheus.Counter
	StationsElectrified prometheus.Counter
	SearchIterations  prometheus.Counter
	MissingEnergyKWh  prometheus.Gauge
	RunDuration       prometheus.Histogram
}

// New registers the optimizer's metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GroupsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "stationelectrify_groups_total",
			Help: "Number of independent event groups processed.",
		}),
		StationsElectrified: factory.NewCounter(prometheus.CounterOpts{
			Name: "stationelectrify_stations_electrified_total",
			Help: "Number of stations added to the electrified set across all runs.",
		}),
		SearchIterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "stationelectrify_search_iterations_total",
			Help: "Number of candidate station sets evaluated by the search driver.",
		}),
		MissingEnergyKWh: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stationelectrify_missing_energy_kwh",
			Help: "Total missing energy across all events in the most recent run.",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stationelectrify_run_duration_seconds",
			Help:    "Wall-clock duration of a full optimizer run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
