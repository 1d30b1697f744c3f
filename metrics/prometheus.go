package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Collector on top of client_golang.
type Prometheus struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	retryBackoff *prometheus.HistogramVec
	misses       *prometheus.CounterVec
	stageItems   *prometheus.GaugeVec
	stageSeconds *prometheus.GaugeVec
	mirrors      *prometheus.CounterVec
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus creates the collector and registers its metrics with reg.
//
// namespace defaults to "rap_sync". Registration errors are returned so a
// duplicate registry wiring fails loudly at startup.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "rap_sync"
	}

	p := &Prometheus{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Upstream HTTP attempts by operation and status code.",
		}, []string{"op", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Upstream HTTP attempt latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10), // 25ms .. ~12.8s
		}, []string{"op"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_retries_total",
			Help:      "HTTP 429 backoffs by operation.",
		}, []string{"op"}),
		retryBackoff: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_limit_backoff_seconds",
			Help:      "Backoff durations applied after HTTP 429.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 5, 10, 30},
		}, []string{"op"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "omissions_total",
			Help:      "Items omitted from a stage result by reason.",
		}, []string{"stage", "reason"}),
		stageItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_items",
			Help:      "Items produced by the last run of each stage.",
		}, []string{"stage"}),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of the last run of each stage.",
		}, []string{"stage"}),
		mirrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_writes_total",
			Help:      "Post-publish mirror writes by mirror and result.",
		}, []string{"mirror", "result"}),
	}

	for _, c := range []prometheus.Collector{
		p.requests, p.latency, p.retries, p.retryBackoff,
		p.misses, p.stageItems, p.stageSeconds, p.mirrors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Prometheus) RecordRequest(op string, code int, latency time.Duration) {
	p.requests.WithLabelValues(op, strconv.Itoa(code)).Inc()
	p.latency.WithLabelValues(op).Observe(latency.Seconds())
}

func (p *Prometheus) RecordRetry(op string, delay time.Duration) {
	p.retries.WithLabelValues(op).Inc()
	p.retryBackoff.WithLabelValues(op).Observe(delay.Seconds())
}

func (p *Prometheus) RecordMiss(stage, reason string) {
	p.misses.WithLabelValues(stage, reason).Inc()
}

func (p *Prometheus) SetStageItems(stage string, n int) {
	p.stageItems.WithLabelValues(stage).Set(float64(n))
}

func (p *Prometheus) ObserveStage(stage string, d time.Duration) {
	p.stageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

func (p *Prometheus) RecordMirror(name string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	p.mirrors.WithLabelValues(name, result).Inc()
}
