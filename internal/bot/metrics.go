package bot

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bot's own Prometheus metrics.
type Metrics struct {
	UpdatesTotal      prometheus.CounterVec
	EditsTotal        prometheus.CounterVec
	RejectionsTotal   prometheus.Counter
	FetchFailures     prometheus.Counter
	RefreshDuration   prometheus.Histogram
	StateSaveFailures prometheus.Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// InitMetrics initializes the global Prometheus metrics.
func InitMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			UpdatesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "easyconduit_updates_total",
					Help: "Inbound Telegram updates processed",
				},
				[]string{"type"},
			),
			EditsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "easyconduit_edits_total",
					Help: "Message edits by slot and outcome",
				},
				[]string{"slot", "outcome"},
			),
			RejectionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "easyconduit_rejections_total",
					Help: "Events rejected by the owner gate",
				},
			),
			FetchFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "easyconduit_metrics_fetch_failures_total",
					Help: "Failed conduit metrics scrapes",
				},
			),
			RefreshDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "easyconduit_refresh_duration_seconds",
					Help:    "Periodic dashboard refresh duration",
					Buckets: prometheus.DefBuckets,
				},
			),
			StateSaveFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "easyconduit_state_save_failures_total",
					Help: "Failed persisted state writes",
				},
			),
		}
	})
	return globalMetrics
}
