package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SamplesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiacode_samples_processed_total",
			Help: "Total number of detector samples processed, by sample kind",
		},
		[]string{"kind"},
	)

	SamplesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiacode_samples_skipped_total",
			Help: "Total number of detector samples dropped by filters, by sample kind",
		},
		[]string{"kind"},
	)

	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiacode_uploads_total",
			Help: "Total number of collector uploads, by dialect and result",
		},
		[]string{"dialect", "result"},
	)

	Batches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "radiacode_batches_total",
			Help: "Total number of data buffer reads",
		},
	)

	LocationFallback = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "radiacode_location_fallback",
			Help: "1 when the default location is used because the lookup failed",
		},
	)
)

func init() {
	prometheus.MustRegister(SamplesProcessed)
	prometheus.MustRegister(SamplesSkipped)
	prometheus.MustRegister(Uploads)
	prometheus.MustRegister(Batches)
	prometheus.MustRegister(LocationFallback)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
