// Package metrics holds the Prometheus collectors for tape replay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mdwire"

// Replay counts what replay pumps deliver.
type Replay struct {
	records      prometheus.Counter
	statuses     *prometheus.CounterVec
	chainErrors  prometheus.Counter
	pumpDuration *prometheus.HistogramVec
}

// NewReplay creates the replay collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewReplay(reg prometheus.Registerer) *Replay {
	f := promauto.With(reg)

	return &Replay{
		records: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "records_total",
			Help:      "Records delivered to replay sinks.",
		}),
		statuses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "statuses_total",
			Help:      "Status events delivered to replay sinks.",
		}, []string{"kind"}),
		chainErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "chain_errors_total",
			Help:      "Corrupt frames or broken links met while pumping.",
		}),
		pumpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "pump_duration_seconds",
			Help:      "Wall time of one pump.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode", "result"}),
	}
}

// Record counts one delivered record. Nil receivers are no-ops.
func (m *Replay) Record() {
	if m == nil {
		return
	}
	m.records.Inc()
}

// Status counts one status event of kind.
func (m *Replay) Status(kind string) {
	if m == nil {
		return
	}
	m.statuses.WithLabelValues(kind).Inc()
}

// ChainError counts one corrupt frame.
func (m *Replay) ChainError() {
	if m == nil {
		return
	}
	m.chainErrors.Inc()
}

// Pump observes the duration of a pump in mode that ended with result.
func (m *Replay) Pump(mode, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.pumpDuration.WithLabelValues(mode, result).Observe(d.Seconds())
}
