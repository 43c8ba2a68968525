package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label names.
const (
	FieldCode      = "code"
	FieldOutcome   = "outcome"
	FieldResult    = "result"
	FieldTransport = "transport"
)

// Admission outcomes.
const (
	OutcomeAllowed  = "allowed"
	OutcomeRejected = "rejected"
	OutcomeExempt   = "exempt"
	OutcomeError    = "error"
)

// Transports.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// BucketsRequest are used for request latency histograms.
var BucketsRequest = []float64{
	.0005,
	.001,
	.0025,
	.005,
	.01,
	.025,
	.05,
	.1,
	.25,
	.5,
	1,
}

// Metrics owns a private registry so independent instances never collide.
type Metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	admissions *prometheus.CounterVec
	records    *prometheus.CounterVec
}

// New creates and registers all collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "total",
			Help:      "Number of handled requests by transport and status code",
		}, []string{FieldTransport, FieldCode}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "latency_seconds",
			Help:      "Distribution of request duration in seconds",
			Buckets:   BucketsRequest,
		}, []string{FieldTransport}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "limiter",
			Name:      "admissions_total",
			Help:      "Rate limiter decisions by outcome",
		}, []string{FieldOutcome}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "records_total",
			Help:      "Validated records by result",
		}, []string{FieldResult}),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.admissions,
		m.records,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(transport, code string, d time.Duration) {
	m.requests.WithLabelValues(transport, code).Inc()
	m.latency.WithLabelValues(transport).Observe(d.Seconds())
}

// ObserveHTTPRequest is ObserveRequest for an HTTP status.
func (m *Metrics) ObserveHTTPRequest(status int, d time.Duration) {
	m.ObserveRequest(TransportHTTP, strconv.Itoa(status), d)
}

// ObserveAdmission records a limiter outcome.
func (m *Metrics) ObserveAdmission(outcome string) {
	m.admissions.WithLabelValues(outcome).Inc()
}

// ObserveRecords records validation tallies.
func (m *Metrics) ObserveRecords(valid, invalid int) {
	m.records.WithLabelValues("valid").Add(float64(valid))
	m.records.WithLabelValues("invalid").Add(float64(invalid))
}

// Requests exposes the request counter for inspection.
func (m *Metrics) Requests() *prometheus.CounterVec { return m.requests }

// Admissions exposes the admission counter for inspection.
func (m *Metrics) Admissions() *prometheus.CounterVec { return m.admissions }

// Records exposes the record counter for inspection.
func (m *Metrics) Records() *prometheus.CounterVec { return m.records }
