// Package metrics exposes Prometheus metrics for HTTP requests and chart
// pipelines.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "datacharts"

// Metrics owns its registry so tests can build independent instances.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	pipelineDuration *prometheus.HistogramVec
	pipelineFailures *prometheus.CounterVec
	chartsWritten    *prometheus.CounterVec
	chartBytes       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"route"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time to load, transform, render and write one dataset's charts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"dataset"}),
		pipelineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_failures_total",
			Help:      "Pipelines that aborted with an error.",
		}, []string{"dataset"}),
		chartsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_written_total",
			Help:      "Chart images written to the static directory.",
		}, []string{"chart"}),
		chartBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_bytes_written_total",
			Help:      "Bytes of chart images written to the static directory.",
		}, []string{"chart"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.pipelineDuration,
		m.pipelineFailures,
		m.chartsWritten,
		m.chartBytes,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObservePipeline(dataset string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.pipelineDuration.WithLabelValues(dataset).Observe(d.Seconds())
	if err != nil {
		m.pipelineFailures.WithLabelValues(dataset).Inc()
	}
}

func (m *Metrics) ChartWritten(chart string, size int64) {
	if m == nil {
		return
	}
	m.chartsWritten.WithLabelValues(chart).Inc()
	m.chartBytes.WithLabelValues(chart).Add(float64(size))
}
