// Package metrics records delivery observability counters. The Recorder
// plugs into the orchestrator as a delivery hook and exposes Prometheus
// collectors for scraping.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

// Recorder counts per-channel delivery results. It implements the
// orchestrator's hook interface and is safe for concurrent use.
type Recorder struct {
	sent        *prometheus.CounterVec
	failed      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rateLimited *prometheus.CounterVec
}

// NewRecorder creates the delivery collectors and registers them on reg.
// A nil reg falls back to the default registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Number of notifications accepted by a channel provider",
			},
			[]string{"type", "channel"},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_failed_total",
				Help: "Number of notifications a channel failed to deliver",
			},
			[]string{"type", "channel"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delivery_duration_seconds",
				Help:    "Wall time of one channel send, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"channel"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limited_total",
				Help: "Number of sends denied by admission control",
			},
			[]string{"channel"},
		),
	}

	reg.MustRegister(r.sent, r.failed, r.duration, r.rateLimited)
	return r
}

// DeliveryCompleted records one delivery run's outcomes.
func (r *Recorder) DeliveryCompleted(_ context.Context, n notification.Notification, outcomes []channel.Outcome) {
	typ := n.Type.String()
	for _, out := range outcomes {
		ch := out.Channel.String()
		r.duration.WithLabelValues(ch).Observe(out.Duration.Seconds())

		if out.Success {
			r.sent.WithLabelValues(typ, ch).Inc()
			continue
		}

		r.failed.WithLabelValues(typ, ch).Inc()
		if out.Classification == channel.ClassRateLimited {
			r.rateLimited.WithLabelValues(ch).Inc()
		}
	}
}
