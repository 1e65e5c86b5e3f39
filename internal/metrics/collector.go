package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes metrics
type Collector struct {
	linesTotal      *prometheus.CounterVec
	checkpointSaves prometheus.Counter
	currentIndex    prometheus.Gauge
	lineDuration    prometheus.Histogram
}

// New creates a new metrics collector registered on the default
// prometheus registry.
func New() *Collector {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a collector registered on reg. Tests pass their own
// registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Collector {
	c := &Collector{
		linesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mnemoscan_lines_total",
				Help: "Total number of lines handled, by outcome",
			},
			[]string{"outcome"},
		),
		checkpointSaves: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mnemoscan_checkpoint_saves_total",
				Help: "Total number of checkpoint persists",
			},
		),
		currentIndex: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mnemoscan_current_index",
				Help: "Highest line index observed so far",
			},
		),
		lineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mnemoscan_line_duration_seconds",
				Help:    "Time taken to handle one line",
				Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
			},
		),
	}

	// Register metrics
	reg.MustRegister(c.linesTotal)
	reg.MustRegister(c.checkpointSaves)
	reg.MustRegister(c.currentIndex)
	reg.MustRegister(c.lineDuration)

	return c
}

// IncValid increments the accepted line counter
func (c *Collector) IncValid() {
	c.linesTotal.WithLabelValues("valid").Inc()
}

// IncInvalid increments the rejected line counter
func (c *Collector) IncInvalid() {
	c.linesTotal.WithLabelValues("invalid").Inc()
}

// IncDuplicate increments the dedup-dropped line counter
func (c *Collector) IncDuplicate() {
	c.linesTotal.WithLabelValues("duplicate").Inc()
}

// IncSkipped increments the blank line counter
func (c *Collector) IncSkipped() {
	c.linesTotal.WithLabelValues("skipped").Inc()
}

// IncReadError increments the undecodable line counter
func (c *Collector) IncReadError() {
	c.linesTotal.WithLabelValues("read_error").Inc()
}

// IncCheckpointSave increments the checkpoint persist counter
func (c *Collector) IncCheckpointSave() {
	c.checkpointSaves.Inc()
}

// SetCurrentIndex records the high-water line index
func (c *Collector) SetCurrentIndex(index int64) {
	c.currentIndex.Set(float64(index))
}

// ObserveLineDuration observes per-line handling time
func (c *Collector) ObserveLineDuration(d time.Duration) {
	c.lineDuration.Observe(d.Seconds())
}

// StartServer starts the metrics HTTP server
func (c *Collector) StartServer(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, nil)
}
