package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_ingest_total",
			Help: "Telemetry frames received by family and outcome.",
		},
		[]string{"family", "outcome"},
	)

	ParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_parse_errors_total",
			Help: "Frame decode failures by family and reason.",
		},
		[]string{"family", "reason"},
	)

	DedupHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_dedup_hits_total",
			Help: "Frames already reported within the dedup window.",
		},
		[]string{"family"},
	)

	RingDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_ring_drops_total",
			Help: "Records dropped at the ring producer (full or contended).",
		},
		[]string{"ring"},
	)

	BatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telemetry_gis_batch_size",
			Help:    "Batch sizes drained per spatial-service push.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"ring"},
	)

	GisPushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telemetry_gis_push_duration_seconds",
			Help:    "Spatial-service push latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"ring"},
	)

	GisPushFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_gis_push_failures_total",
			Help: "Failed spatial-service pushes (batch dropped, client invalidated).",
		},
		[]string{"ring"},
	)

	BrokerPublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_broker_publish_failures_total",
			Help: "Failed broker publishes by routing key.",
		},
		[]string{"routing_key"},
	)

	StorageInsertFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_storage_insert_failures_total",
			Help: "Failed raw-frame archive inserts.",
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			IngestTotal,
			ParseErrorsTotal,
			DedupHitsTotal,
			RingDropsTotal,
			BatchSize,
			GisPushDuration,
			GisPushFailuresTotal,
			BrokerPublishFailuresTotal,
			StorageInsertFailuresTotal,
		)
	})
}
