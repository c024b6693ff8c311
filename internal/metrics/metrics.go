package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. One instance is wired
// through the app graph; tests construct their own against a fresh registry.
type Metrics struct {
	SweepRuns        *prometheus.CounterVec
	SweepDuration    *prometheus.HistogramVec
	StationsUpserts  *prometheus.CounterVec
	ChangesDetected  prometheus.Counter
	SearchRequests   *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	BatchesPublished prometheus.Counter
}

// New registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Completed sweep runs by job and result.",
		}, []string{"job", "result"}),
		SweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Wall-clock duration of sweep runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"job"}),
		StationsUpserts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stations_upserted_total",
			Help: "Stations written to the store by job.",
		}, []string{"job"}),
		ChangesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "station_changes_detected_total",
			Help: "Status transitions detected by the speed sweep.",
		}),
		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "station_search_total",
			Help: "Geo searches by serving path (local, enriched, degraded).",
		}, []string{"path"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by result.",
		}, []string{"result"}),
		BatchesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "change_batches_published_total",
			Help: "Change batches published to the pub/sub channel.",
		}),
	}
}
