package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusProvider implements the Provider interface using Prometheus.
type PrometheusProvider struct {
	opDuration     *prometheus.HistogramVec
	opTotal        *prometheus.CounterVec
	dispatchUsers  *prometheus.HistogramVec
	dispatchGroups *prometheus.HistogramVec
	userErrors     *prometheus.CounterVec
}

// NewPrometheusProvider creates a new Prometheus metrics provider.
func NewPrometheusProvider() *PrometheusProvider {
	return &PrometheusProvider{
		opDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feed_op_duration_seconds",
				Help:    "Feed operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "op"},
		),
		opTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_ops_total",
				Help: "Total number of feed operations",
			},
			[]string{"provider", "op", "status"},
		),
		dispatchUsers: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feed_dispatch_users",
				Help:    "Users per batched feed call",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
			},
			[]string{"provider", "op"},
		),
		dispatchGroups: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "feed_dispatch_groups",
				Help:    "Pipelined groups per batched feed call",
				Buckets: []float64{1, 2, 3, 5, 10, 25, 50},
			},
			[]string{"provider", "op"},
		),
		userErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_user_errors_total",
				Help: "Per-user errors captured in batch responses",
			},
			[]string{"provider", "op", "kind"},
		),
	}
}

// RecordFeedOp records duration and outcome of one batched feed operation.
func (p *PrometheusProvider) RecordFeedOp(provider, op string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.opDuration.WithLabelValues(provider, op).Observe(duration.Seconds())
	p.opTotal.WithLabelValues(provider, op, status).Inc()
}

// RecordBatchDispatch records the fan-out shape of a batched call.
func (p *PrometheusProvider) RecordBatchDispatch(provider, op string, users, groups int) {
	p.dispatchUsers.WithLabelValues(provider, op).Observe(float64(users))
	p.dispatchGroups.WithLabelValues(provider, op).Observe(float64(groups))
}

// RecordUserError records a per-user captured error by kind.
func (p *PrometheusProvider) RecordUserError(provider, op, kind string) {
	p.userErrors.WithLabelValues(provider, op, kind).Inc()
}

// Handler returns the /metrics HTTP handler.
func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.Handler()
}
